/*
Package api holds the HTTP transport of the issuance factory.

It is organized into three subpackages:

1. handlers - decodes requests and maps factory errors to status codes
2. servers - HTTP server lifecycle, health probes, pprof and metrics
3. clients - a typed client for the routes served by handlers

This package itself only defines the shared response shapes and the server
configuration.

# Error Responses

Every failed request is answered with a JSON body

	{"error": "<code>", "message": "<text>"}

where code is one of the stable codes returned by factory.ErrorCode, plus
"malformed_request" for undecodable bodies and "dispatch_failed" when the
produced message could not be delivered.
*/
package api
