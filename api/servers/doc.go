/*
Package servers runs the HTTP server of an issuance factory.

Server mounts the factory routes from api/handlers next to the health and
lifecycle endpoints:

	GET /livez    always 200 while the process is up
	GET /readyz   200 while ready, 503 after /drain
	GET /drain    mark the server not ready
	GET /undrain  mark the server ready again

pprof is mounted under /debug when EnablePprof is set, and the Prometheus
registry of the factory host is served on MetricsAddr.

# Example Usage

	metricsSrv, _ := metrics.New(common.PackageName, ":8090")
	h := host.New(host.Config{Backend: backend, Dispatcher: dispatcher, Metrics: metricsSrv.Metrics()})

	srv, err := servers.New(cfg, metricsSrv, handlers.NewHandler(h, log))
	if err != nil {
	    return err
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package servers
