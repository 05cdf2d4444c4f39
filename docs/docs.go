// Package docs holds the OpenAPI description served at /swagger. It mirrors the
// swag annotations on the handlers in internal/server.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/posts/comments": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Comment on a post",
                "parameters": [
                    {"type": "string", "description": "Comment (max 255 characters)", "name": "content", "in": "formData", "required": true},
                    {"type": "integer", "description": "Post ID", "name": "postId", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Form re-rendered with errors"},
                    "302": {"description": "Redirect to /"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/create-post": {
            "post": {
                "description": "Stores a post authored by the session user and re-renders the post page.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Publish a post",
                "parameters": [
                    {"type": "string", "description": "Header (max 255)", "name": "header", "in": "formData", "required": true},
                    {"type": "string", "description": "Content", "name": "content", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "302": {"description": "Redirect to /users/login when signed out"}
                }
            }
        },
        "/posts/feed": {
            "get": {
                "description": "Posts newest first with their authors.",
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Feed",
                "responses": {
                    "200": {"description": "OK"},
                    "302": {"description": "Redirect to /users/login when signed out"}
                }
            }
        },
        "/users/follow/{id}": {
            "get": {
                "description": "Creates a follow edge from the session user to the target.",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Follow a user",
                "parameters": [
                    {"type": "integer", "description": "User ID to follow", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Self-follow", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Unknown user", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Already following", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/login": {
            "post": {
                "description": "Checks the credentials and starts a session. Unknown usernames and wrong passwords produce the same message.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Log in",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Form re-rendered with errors"},
                    "302": {"description": "Redirect to /posts/feed"}
                }
            }
        },
        "/users/profile/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "View a profile",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/sign-up": {
            "post": {
                "description": "Validates the form, stores the user with a bcrypt hash and starts a session.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register an account",
                "parameters": [
                    {"type": "string", "description": "Username (max 50)", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true},
                    {"type": "string", "description": "Password confirmation", "name": "confirmPassword", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Form re-rendered with errors"},
                    "302": {"description": "Redirect to /users/my-profile"}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "SessionCookie": {
            "type": "apiKey",
            "name": "kinship_session",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Kinship API",
	Description:      "Small social network: accounts, posts, a feed, comments, profiles and follows.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
