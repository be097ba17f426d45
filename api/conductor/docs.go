// Package conductor registers the OpenAPI document served under /swagger/.
//
// Regenerate with: swag init -g internal/conductor/http/router.go -o api/conductor
package conductor

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/conductor"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/conductorsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness Check Endpoint",
                "responses": {
                    "200": {"description": "ready", "schema": {"$ref": "#/definitions/conductorsdk.HealthResponse"}},
                    "503": {"description": "service not ready", "schema": {"$ref": "#/definitions/conductorsdk.HealthResponse"}}
                }
            }
        },
        "/v1/{kind}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Peers"],
                "summary": "List peers of a kind",
                "parameters": [
                    {"type": "string", "enum": ["runners", "gateways", "managers"], "name": "kind", "in": "path", "required": true},
                    {"type": "boolean", "name": "include_disabled", "in": "query"},
                    {"type": "string", "name": "manager_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conductorsdk.ListPeersResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Peers"],
                "summary": "Register a peer",
                "parameters": [
                    {"type": "string", "enum": ["runners", "gateways", "managers"], "name": "kind", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/conductorsdk.RegisterPeerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/conductorsdk.PeerResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/conductorsdk.ErrorResponse"}},
                    "503": {"description": "Peer unreachable", "schema": {"$ref": "#/definitions/conductorsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/{kind}/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Peers"],
                "summary": "Get a peer",
                "parameters": [
                    {"type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conductorsdk.PeerResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/conductorsdk.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Peers"],
                "summary": "Update name, address or credential",
                "parameters": [
                    {"type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/conductorsdk.UpdatePeerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conductorsdk.PeerResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Peers"],
                "summary": "Release a peer",
                "parameters": [
                    {"type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/v1/runners/select": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Selection"],
                "summary": "Select the least loaded runner",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conductorsdk.SelectRunnerResponse"}},
                    "503": {"description": "No peers available", "schema": {"$ref": "#/definitions/conductorsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/managers/select": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Selection"],
                "summary": "Select the newest reachable manager",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conductorsdk.SelectManagerResponse"}},
                    "503": {"description": "No eligible peer", "schema": {"$ref": "#/definitions/conductorsdk.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "conductorsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        },
        "conductorsdk.RegisterPeerRequest": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "name": {"type": "string"},
                "credential": {"type": "string"},
                "manager_id": {"type": "string"}
            }
        },
        "conductorsdk.UpdatePeerRequest": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "name": {"type": "string"},
                "credential": {"type": "string"}
            }
        },
        "conductorsdk.PeerResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"},
                "enabled": {"type": "boolean"},
                "has_credential": {"type": "boolean"},
                "manager_id": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "credential_unreadable": {"type": "boolean"}
            }
        },
        "conductorsdk.ListPeersResponse": {
            "type": "object",
            "properties": {
                "peers": {"type": "array", "items": {"$ref": "#/definitions/conductorsdk.PeerResponse"}}
            }
        },
        "conductorsdk.SelectRunnerResponse": {
            "type": "object",
            "properties": {
                "peer": {"$ref": "#/definitions/conductorsdk.PeerResponse"},
                "load": {"type": "number"}
            }
        },
        "conductorsdk.SelectManagerResponse": {
            "type": "object",
            "properties": {
                "peer": {"$ref": "#/definitions/conductorsdk.PeerResponse"},
                "gateway": {"$ref": "#/definitions/conductorsdk.PeerResponse"}
            }
        },
        "conductorsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token with peers:read or peers:write. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Conductor Peer Registry API",
	Description:      "Registers remote runners, gateways and managers, streams their status and selects which peer should service new work.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
