// Package handler turns an invocation into an alert run and a response.
//
// Alerts applies the request-body overrides, runs the venue search through
// the aggregator and geo stage, sends the digest and answers with a JSON
// summary. Calendar answers with the text digest of the calendar widget.
// Both return a Response that NewRouter writes over HTTP and the Lambda
// binary wraps in an API Gateway proxy response.
package handler
