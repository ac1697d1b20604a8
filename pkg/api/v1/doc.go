// Package v1 defines the JSON request and response bodies of the newsd REST
// API. Every response carries a "success" flag; failures add "error" and an
// optional "message".
package v1
