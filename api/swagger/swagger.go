package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Training Admin API",
        "description": "Course admission control and email delivery reliability",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollments", "description": "Course admission and waitlist management"},
        {"name": "Alerts", "description": "Delivery alert feed"},
        {"name": "Delivery", "description": "Email delivery health"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string"},
                    {"name": "offeringId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a user into a course offering",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Cancel enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/attendance": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Update attendance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List unresolved delivery alerts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}/resolve": {
            "put": {
                "tags": ["Alerts"],
                "summary": "Resolve alert",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/delivery/bounce-rates": {
            "get": {
                "tags": ["Delivery"],
                "summary": "Per-domain bounce rates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/delivery/reports": {
            "get": {
                "tags": ["Delivery"],
                "summary": "Recent daily delivery reports",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/delivery/reports/export": {
            "post": {
                "tags": ["Delivery"],
                "summary": "Export recent daily reports as CSV",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/delivery/reports/download": {
            "get": {
                "tags": ["Delivery"],
                "summary": "Download an archived report export",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        }
    },
    "definitions": {
        "Enrollment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "course_offering_id": {"type": "string"},
                "status": {"type": "string", "enum": ["ENROLLED", "WAITLISTED", "CANCELLED", "COMPLETED"]},
                "waitlist_position": {"type": "integer"},
                "attendance": {"type": "boolean"},
                "attendance_notes": {"type": "string"},
                "enrollment_date": {"type": "string"}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "course_offering_id": {"type": "string"}
            },
            "required": ["user_id", "course_offering_id"]
        },
        "AttendanceRequest": {
            "type": "object",
            "properties": {
                "attendance": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "DeliveryAlert": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "alert_type": {"type": "string", "enum": ["high_bounce_rate", "delivery_failure", "domain_issue"]},
                "severity": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
                "message": {"type": "string"},
                "metadata": {"type": "object"},
                "created_at": {"type": "string"},
                "resolved_at": {"type": "string"}
            }
        },
        "DomainBounceStat": {
            "type": "object",
            "properties": {
                "domain": {"type": "string"},
                "total_emails": {"type": "integer"},
                "bounced_emails": {"type": "integer"},
                "bounce_rate": {"type": "number"}
            }
        },
        "DeliveryReport": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "report_date": {"type": "string"},
                "total": {"type": "integer"},
                "delivered": {"type": "integer"},
                "bounced": {"type": "integer"},
                "failed": {"type": "integer"},
                "pending": {"type": "integer"},
                "delivery_rate": {"type": "number"},
                "bounce_rate": {"type": "number"},
                "created_at": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
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
