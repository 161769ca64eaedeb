// Package swagger holds the OpenAPI document of the JSON endpoints.
// Regenerate with: swag init -g cmd/bizadmin/main.go -o docs/swagger
package swagger

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
        "/api/catalog": {
            "get": {
                "description": "Returns the navigation items and every module definition in navigation order",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Catalog"
                ],
                "summary": "List the catalog",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.CatalogResponse"
                        }
                    }
                }
            }
        },
        "/api/catalog/modules/{key}": {
            "get": {
                "description": "Returns the column and field definitions of one module",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Catalog"
                ],
                "summary": "Get a module",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Module key",
                        "name": "key",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "module definition",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponseBody"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "description": "Returns OK if the admin server is running",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Health"
                ],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "status: ok",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/health/live": {
            "get": {
                "description": "Returns OK if the admin server is running",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Health"
                ],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "status: ok",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/health/ready": {
            "get": {
                "description": "Checks that the REST backend answers below 500",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Health"
                ],
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "status: ok",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "503": {
                        "description": "status: unhealthy, error: message",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/version": {
            "get": {
                "description": "Returns the version of the admin server",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Get service version",
                "responses": {
                    "200": {
                        "description": "Version information",
                        "schema": {
                            "$ref": "#/definitions/http.VersionResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "http.CatalogResponse": {
            "type": "object",
            "properties": {
                "modules": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/schema.ModuleConfig"
                    }
                },
                "navigation": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/schema.NavItem"
                    }
                }
            }
        },
        "http.ErrorDetail": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "http.ErrorResponseBody": {
            "type": "object",
            "properties": {
                "error": {
                    "$ref": "#/definitions/http.ErrorDetail"
                }
            }
        },
        "http.VersionResponse": {
            "type": "object",
            "properties": {
                "service": {
                    "type": "string"
                },
                "version": {
                    "type": "string"
                }
            }
        },
        "schema.ColumnDef": {
            "type": "object",
            "properties": {
                "key": {
                    "type": "string"
                },
                "relation": {
                    "$ref": "#/definitions/schema.ColumnRef"
                },
                "search": {
                    "type": "boolean"
                },
                "sorter": {
                    "type": "boolean"
                },
                "title": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                }
            }
        },
        "schema.ColumnRef": {
            "type": "object",
            "properties": {
                "module": {
                    "type": "string"
                },
                "valueField": {
                    "type": "string"
                }
            }
        },
        "schema.FieldDef": {
            "type": "object",
            "properties": {
                "key": {
                    "type": "string"
                },
                "label": {
                    "type": "string"
                },
                "max": {
                    "type": "number"
                },
                "min": {
                    "type": "number"
                },
                "options": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/schema.Option"
                    }
                },
                "placeholder": {
                    "type": "string"
                },
                "relation": {
                    "$ref": "#/definitions/schema.FieldRelation"
                },
                "required": {
                    "type": "boolean"
                },
                "type": {
                    "type": "string"
                }
            }
        },
        "schema.FieldRelation": {
            "type": "object",
            "properties": {
                "module": {
                    "type": "string"
                },
                "value": {
                    "type": "string"
                }
            }
        },
        "schema.FormDef": {
            "type": "object",
            "properties": {
                "fields": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/schema.FieldDef"
                    }
                }
            }
        },
        "schema.ModuleConfig": {
            "type": "object",
            "properties": {
                "endpoint": {
                    "description": "Endpoint is the URL path used for CRUD operations.",
                    "type": "string"
                },
                "form": {
                    "$ref": "#/definitions/schema.FormDef"
                },
                "key": {
                    "description": "Key is the unique, stable identifier of the module (e.g. \"inventory\").",
                    "type": "string"
                },
                "table": {
                    "$ref": "#/definitions/schema.TableDef"
                },
                "title": {
                    "description": "Title is the human-readable label.",
                    "type": "string"
                }
            }
        },
        "schema.NavItem": {
            "type": "object",
            "properties": {
                "icon": {
                    "type": "string"
                },
                "key": {
                    "type": "string"
                },
                "label": {
                    "type": "string"
                },
                "path": {
                    "type": "string"
                }
            }
        },
        "schema.Option": {
            "type": "object",
            "properties": {
                "label": {
                    "type": "string"
                },
                "value": {}
            }
        },
        "schema.TableDef": {
            "type": "object",
            "properties": {
                "columns": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/schema.ColumnDef"
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bizadmin - Business Admin",
	Description:      "Metadata-driven admin over an existing REST backend. Read-only JSON endpoints for health, version and the module catalog.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
