// Package docs registers the OpenAPI document served under /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/live-matches": {
            "post": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Initialize live scoring for a fixture",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "description": "Toss details",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}": {
            "get": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Get the live match state, initializing it with the default toss when due",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}/summary": {
            "get": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Get the flattened score summary of a live match",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}/commentary": {
            "get": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Recent ball-by-ball commentary of the current innings, newest first",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}/deliveries": {
            "post": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Record one delivery of the current innings",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Delivery",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}/complete-innings": {
            "post": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Close the current innings",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}/players": {
            "put": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Replace the current batsmen and bowler",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Players",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/live-matches/{matchID}/prediction": {
            "post": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Win probability and projected score for a live match",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/autoplay/{matchID}/upload": {
            "post": {
                "tags": [
                    "autoplay"
                ],
                "summary": "Upload a Cricsheet JSON scorecard to replay",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "file",
                        "description": "Cricsheet JSON file",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/autoplay/{matchID}/start": {
            "post": {
                "tags": [
                    "autoplay"
                ],
                "summary": "Start replaying the uploaded scorecard",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/autoplay/{matchID}/pause": {
            "post": {
                "tags": [
                    "autoplay"
                ],
                "summary": "Pause a running replay",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/autoplay/{matchID}/speed": {
            "put": {
                "tags": [
                    "autoplay"
                ],
                "summary": "Change the replay speed",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Speed (0.5, 1, 2, 3)",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/autoplay/{matchID}/stop": {
            "post": {
                "tags": [
                    "autoplay"
                ],
                "summary": "Stop a replay and rewind it",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/autoplay/{matchID}/status": {
            "get": {
                "tags": [
                    "autoplay"
                ],
                "summary": "Replay progress",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/events/{eventID}": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Event with its full fixture list",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "eventID",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/events/{eventID}/schedule": {
            "post": {
                "tags": [
                    "events"
                ],
                "summary": "Generate the round-robin and knockout fixtures of an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "eventID",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/events/{eventID}/leaderboard": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Event leaderboard ordered by points",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "eventID",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/events/{eventID}/fixtures": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Fixtures of an event, optionally filtered by status",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "eventID",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/events/{eventID}/fixtures/live": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Scheduled or in-progress fixtures starting within three hours of now",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "eventID",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/v1/fixtures/{fixtureID}": {
            "patch": {
                "tags": [
                    "fixtures"
                ],
                "summary": "Update the status and score of a fixture",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "409": {
                        "description": "Conflict"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "fixtureID",
                        "name": "fixtureID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Result",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/ws/matches/{matchID}": {
            "get": {
                "tags": [
                    "live-matches"
                ],
                "summary": "Live match event stream (websocket)",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request"
                    },
                    "404": {
                        "description": "Not Found"
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "matchID",
                        "name": "matchID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/healthz": {
            "get": {
                "tags": [
                    "health"
                ],
                "summary": "Liveness and storage check",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "503": {
                        "description": "Service Unavailable"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "UniPlay API",
	Description:      "Live cricket scoring, fixture scheduling and scorecard replay for university sports events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
