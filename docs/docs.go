// Package docs registers the OpenAPI document of the chat bridge with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/unifiedui/chat-bridge"
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
        "/api/v1/chat-bridge/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Service healthy", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service unhealthy", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/api/v1/chat-bridge/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "Service ready"}, "503": {"description": "Service not ready"}}
            }
        },
        "/api/v1/chat-bridge/live": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "Service alive"}}
            }
        },
        "/api/v1/chat-bridge/scenarios": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Explanation"],
                "summary": "List explanation scenarios",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ScenariosResponse"}}}
            }
        },
        "/api/v1/chat-bridge/sessions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Sessions"],
                "summary": "Open a session",
                "parameters": [{"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.OpenSessionRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conversation.SessionInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Sessions"],
                "summary": "Close a session",
                "parameters": [{"name": "sessionId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/threads": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Threads"],
                "summary": "Open a thread",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.OpenThreadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.OpenThreadResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Threads"],
                "summary": "Close a thread",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}}
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Messages"],
                "summary": "Get the live transcript",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.GetMessagesResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Messages"],
                "summary": "Send a message",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SendMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Another message is in flight", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Messages"],
                "summary": "Get archived messages",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer", "default": 50, "minimum": 1, "maximum": 200},
                    {"name": "offset", "in": "query", "type": "integer", "default": 0, "minimum": 0}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HistoryResponse"}},
                    "503": {"description": "Archive disabled", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Messages"],
                "summary": "Purge archived messages",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PurgeHistoryResponse"}},
                    "503": {"description": "Archive disabled", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/threads/{threadId}/authorization": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Authorization"],
                "summary": "Get the authorization wait",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/authorization.Status"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Authorization"],
                "summary": "Start an authorization wait",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.StartAuthorizationRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/conversation.AuthorizationStart"}},
                    "409": {"description": "Message does not await authorization", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Authorization"],
                "summary": "Cancel the authorization wait",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "threadId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CancelAuthorizationResponse"}}}
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/explanation": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Explanation"],
                "summary": "Get the explanation panel",
                "parameters": [{"name": "sessionId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/conversation.Explanation"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Explanation"],
                "summary": "Explain a message",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ShowExplanationRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/conversation.Explanation"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Explanation"],
                "summary": "Reset the explanation panel",
                "parameters": [{"name": "sessionId", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/explanation/toggle": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Explanation"],
                "summary": "Toggle the explanation panel",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ToggleExplanationRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/conversation.Explanation"}}}
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Events"],
                "summary": "Stream session events",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "access_token", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "event stream"}}
            }
        },
        "/api/v1/chat-bridge/sessions/{sessionId}/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Events"],
                "summary": "Stream session events over a websocket",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "access_token", "in": "query", "type": "string"}
                ],
                "responses": {"101": {"description": "switching protocols"}}
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "details": {"type": "string"}}
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "components": {"type": "object", "additionalProperties": {"type": "string"}}}
        },
        "dto.OpenSessionRequest": {"type": "object", "properties": {"sessionId": {"type": "string"}}},
        "dto.OpenThreadRequest": {"type": "object", "properties": {"userName": {"type": "string"}}},
        "dto.SendMessageRequest": {"type": "object", "properties": {"content": {"type": "string"}}},
        "dto.StartAuthorizationRequest": {"type": "object", "required": ["messageId"], "properties": {"messageId": {"type": "string"}}},
        "dto.ShowExplanationRequest": {
            "type": "object",
            "required": ["threadId", "messageId"],
            "properties": {"threadId": {"type": "string"}, "messageId": {"type": "string"}}
        },
        "dto.ToggleExplanationRequest": {"type": "object", "properties": {"visible": {"type": "boolean"}}},
        "dto.CancelAuthorizationResponse": {"type": "object", "properties": {"cancelled": {"type": "boolean"}}},
        "dto.OpenThreadResponse": {
            "type": "object",
            "properties": {
                "thread": {"$ref": "#/definitions/models.ConversationThread"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/models.Message"}}
            }
        },
        "dto.GetMessagesResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/models.Message"}},
                "loading": {"type": "boolean"}
            }
        },
        "dto.SendMessageResponse": {"type": "object", "properties": {"message": {"$ref": "#/definitions/models.Message"}}},
        "dto.HistoryResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/models.Message"}},
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "dto.PurgeHistoryResponse": {"type": "object", "properties": {"deleted": {"type": "integer"}}},
        "dto.ScenariosResponse": {
            "type": "object",
            "properties": {"scenarios": {"type": "array", "items": {"$ref": "#/definitions/models.Scenario"}}}
        },
        "authorization.Status": {
            "type": "object",
            "properties": {
                "threadId": {"type": "string"},
                "messageId": {"type": "string"},
                "authorizationUrl": {"type": "string"},
                "outcome": {"type": "string", "enum": ["pending", "authorized", "timed_out", "cancelled", "trigger_failed"]},
                "attempts": {"type": "integer"},
                "maxAttempts": {"type": "integer"},
                "startedAt": {"type": "string"},
                "finishedAt": {"type": "string"}
            }
        },
        "conversation.AuthorizationStart": {
            "type": "object",
            "properties": {"status": {"$ref": "#/definitions/authorization.Status"}, "triggerUrl": {"type": "string"}}
        },
        "conversation.SessionInfo": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "createdAt": {"type": "string"},
                "restored": {"type": "boolean"},
                "threadIds": {"type": "array", "items": {"type": "string"}},
                "snapshot": {"$ref": "#/definitions/models.SharedStateSnapshot"}
            }
        },
        "conversation.Explanation": {
            "type": "object",
            "properties": {
                "snapshot": {"$ref": "#/definitions/models.SharedStateSnapshot"},
                "scenario": {"$ref": "#/definitions/models.Scenario"},
                "points": {"type": "array", "items": {"$ref": "#/definitions/models.ScenarioPoint"}}
            }
        },
        "models.SharedStateSnapshot": {
            "type": "object",
            "properties": {
                "currentThreadId": {"type": "string"},
                "currentStateTags": {"type": "array", "items": {"type": "string"}},
                "isExplanationPanelVisible": {"type": "boolean"}
            }
        },
        "models.ConversationThread": {
            "type": "object",
            "properties": {"threadId": {"type": "string"}, "sessionId": {"type": "string"}, "createdAt": {"type": "string"}}
        },
        "models.AgentResponse": {
            "type": "object",
            "properties": {
                "agentMessageId": {"type": "string"},
                "chatText": {"type": "string"},
                "authorizationUrl": {"type": "string"},
                "continuationPayload": {"type": "object"},
                "stateTags": {"type": "array", "items": {"type": "string"}},
                "frontendState": {"type": "string"}
            }
        },
        "models.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "threadId": {"type": "string"},
                "content": {"type": "string"},
                "origin": {"type": "string", "enum": ["user", "agent"]},
                "phase": {"type": "string", "enum": ["pending", "delivered", "failed"]},
                "loadingAction": {"type": "string", "enum": ["default", "booking"]},
                "toolResponse": {"$ref": "#/definitions/models.AgentResponse"},
                "createdAt": {"type": "string"},
                "confirmationResolved": {"type": "boolean"}
            }
        },
        "models.Scenario": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "details": {"type": "string"},
                "matchTags": {"type": "array", "items": {"type": "string"}},
                "priority": {"type": "integer"}
            }
        },
        "models.ScenarioPoint": {
            "type": "object",
            "properties": {"title": {"type": "string"}, "description": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token forwarded to the agent service",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8086",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Chat Bridge API",
	Description:      "Bridges a browser chat widget to a stateful agent service: transcripts, consent polling and the shared explanation panel.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
