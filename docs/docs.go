// Package docs registers the OpenAPI document served under /docs.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/registerRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.TokenResponse"}},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/loginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.TokenResponse"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Get Current User",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}}}
            }
        },
        "/users/online": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "List online users",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{userID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Get user identity",
                "parameters": [{"type": "integer", "name": "userID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/products": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "List a product",
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/productCreateRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Product"}}, "403": {"description": "Forbidden"}}
            }
        },
        "/products/{productID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Get a product",
                "parameters": [{"type": "integer", "name": "productID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Product"}}, "404": {"description": "Not Found"}}
            }
        },
        "/conversations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["conversations"],
                "summary": "List my conversations",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.ConversationView"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["conversations"],
                "summary": "Start or resume a conversation",
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/conversationCreateRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ConversationView"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.ConversationView"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/conversations/{conversationID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["conversations"],
                "summary": "Get a conversation",
                "parameters": [{"type": "string", "name": "conversationID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ConversationView"}}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["conversations"],
                "summary": "Delete a conversation",
                "parameters": [{"type": "string", "name": "conversationID", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/conversations/{conversationID}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["messages"],
                "summary": "Page through message history",
                "parameters": [
                    {"type": "string", "name": "conversationID", "in": "path", "required": true},
                    {"type": "integer", "name": "before", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.MessagePage"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["messages"],
                "summary": "Send a message",
                "parameters": [
                    {"type": "string", "name": "conversationID", "in": "path", "required": true},
                    {"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/messageCreateRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/service.MessageView"}}}
            }
        },
        "/conversations/{conversationID}/seen": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["messages"],
                "summary": "Mark messages seen",
                "parameters": [{"type": "string", "name": "conversationID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "registerRequest": {
            "type": "object",
            "required": ["name", "email", "password"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "shop_name": {"type": "string"}
            }
        },
        "loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "productCreateRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}, "image": {"type": "string"}}
        },
        "conversationCreateRequest": {
            "type": "object",
            "required": ["product_id"],
            "properties": {
                "other_user_id": {"type": "integer"},
                "seller_id": {"type": "integer"},
                "product_id": {"type": "integer"}
            }
        },
        "messageCreateRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {"text": {"type": "string"}}
        },
        "domain.Identity": {
            "type": "object",
            "properties": {"id": {"type": "integer"}, "name": {"type": "string"}, "shop_name": {"type": "string"}}
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "shop_name": {"type": "string"},
                "role": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "domain.Product": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "image": {"type": "string"},
                "seller_id": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "service.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        },
        "service.MessageView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "conversation_id": {"type": "string"},
                "sender_id": {"type": "integer"},
                "sender": {"$ref": "#/definitions/domain.Identity"},
                "text": {"type": "string"},
                "seen": {"type": "boolean"},
                "created_at": {"type": "string"}
            }
        },
        "service.MessagePage": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/service.MessageView"}},
                "has_more": {"type": "boolean"},
                "next_before": {"type": "integer"}
            }
        },
        "service.ConversationView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/domain.Identity"}},
                "product_id": {"type": "integer"},
                "product": {"$ref": "#/definitions/domain.Product"},
                "last_message": {"type": "string"},
                "last_message_time": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/service.MessageView"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "marketchat API",
	Description:      "Buyer and seller conversations about marketplace products.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
