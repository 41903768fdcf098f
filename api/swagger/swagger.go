package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Academic Transition API",
        "description": "Academic year transition and fee ledger carry-forward",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "AcademicYear", "description": "Academic year configuration and yearly transition"},
        {"name": "Operations", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/academic-years": {
            "get": {
                "tags": ["AcademicYear"],
                "summary": "Get the academic year configuration",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AcademicYearEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/academic-years/transition": {
            "post": {
                "tags": ["AcademicYear"],
                "summary": "Run the academic year transition",
                "description": "Promotes every active student into the new academic year, carries unpaid fees forward and archives the retired year.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store failure or canceled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TransitionRequest": {
            "type": "object",
            "required": ["newYear"],
            "properties": {
                "newYear": {"type": "string", "maxLength": 32, "example": "2025-2026"}
            }
        },
        "DataIntegrityWarning": {
            "type": "object",
            "properties": {
                "collection": {"type": "string"},
                "documentId": {"type": "string"},
                "field": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "StudentFailure": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "TransitionResult": {
            "type": "object",
            "properties": {
                "runId": {"type": "string"},
                "fromYear": {"type": "string"},
                "toYear": {"type": "string"},
                "promotedCount": {"type": "integer"},
                "retainedCount": {"type": "integer"},
                "graduatedCount": {"type": "integer"},
                "skippedCount": {"type": "integer"},
                "ledgersWritten": {"type": "integer"},
                "carriedForwardTotal": {"type": "number"},
                "assignmentsCopied": {"type": "integer"},
                "timetablesCopied": {"type": "integer"},
                "batchesCommitted": {"type": "integer"},
                "operationsCommitted": {"type": "integer"},
                "warnings": {"type": "array", "items": {"$ref": "#/definitions/DataIntegrityWarning"}},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/StudentFailure"}},
                "startedAt": {"type": "string", "format": "date-time"},
                "completedAt": {"type": "string", "format": "date-time"}
            }
        },
        "YearHistoryEntry": {
            "type": "object",
            "properties": {
                "year": {"type": "string"},
                "archivedAt": {"type": "string", "format": "date-time"},
                "promotedCount": {"type": "integer"},
                "archivedCount": {"type": "integer"},
                "stats": {"type": "object"}
            }
        },
        "AcademicYear": {
            "type": "object",
            "properties": {
                "currentYear": {"type": "string"},
                "currentYearStartDate": {"type": "string", "format": "date-time"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/YearHistoryEntry"}},
                "upcoming": {"type": "array", "items": {"type": "string"}},
                "configured": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "TransitionEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/TransitionResult"},
                "meta": {"type": "object"}
            }
        },
        "AcademicYearEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/AcademicYear"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
