/*
Package handlers implements the HTTP surface of an issuance factory.

Handler decodes JSON requests, runs them against an interfaces.FactoryOperations
implementation (normally a host.Host) and maps factory errors to HTTP status
codes. Every error response carries an api.ErrorResponse body whose "error"
field is the stable code returned by factory.ErrorCode.

# Routes

	POST /api/v1/factory/initialize     InstantiateParams      -> api.InitializeResponse
	POST /api/v1/factory/receive        PaymentNotification    -> api.ReceiveResponse
	POST /api/v1/factory/reply          CompletionNotification -> api.ReplyResponse
	GET  /api/v1/factory/config                                -> ConfigResponse
	GET  /api/v1/factory/contract_info                         -> ContractInfo
	POST /api/v1/factory/migrate        MigrateRequest         -> always an error
*/
package handlers
