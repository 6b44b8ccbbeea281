package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classroom Averages API",
        "description": "Weighted term, partial and final grade averages per classroom subject.",
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
        {"name": "Averages", "description": "Computed term, partial and final averages"},
        {"name": "Grades", "description": "Label grades"},
        {"name": "Reinforcement", "description": "Term reinforcement grades"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check probing the database and cache",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Metrics exposition"}
                }
            }
        },
        "/api/v1/classrooms/{classroomID}/averages": {
            "get": {
                "tags": ["Averages"],
                "summary": "Averages of every subject of a classroom",
                "description": "Every query key other than mode, group, group_size, format, academic_period_id and _ is read as a term weight in [0,1]. Keys naming no term of the period are reported and ignored. Without weights only per-term averages are returned.",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json", "text/csv"],
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"$ref": "#/parameters/AcademicPeriod"},
                    {"$ref": "#/parameters/Mode"},
                    {"$ref": "#/parameters/Group"},
                    {"$ref": "#/parameters/GroupSize"},
                    {"$ref": "#/parameters/Format"}
                ],
                "responses": {
                    "200": {"description": "Averages", "schema": {"$ref": "#/definitions/AveragesEnvelope"}},
                    "400": {"description": "Invalid request or weights", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Classroom belongs to another teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Classroom not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No academic period selected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classrooms/{classroomID}/subjects/{subjectID}/averages": {
            "get": {
                "tags": ["Averages"],
                "summary": "Averages of one subject of a classroom",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json", "text/csv"],
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"name": "subjectID", "in": "path", "required": true, "type": "integer"},
                    {"$ref": "#/parameters/AcademicPeriod"},
                    {"$ref": "#/parameters/Mode"},
                    {"$ref": "#/parameters/Group"},
                    {"$ref": "#/parameters/GroupSize"},
                    {"$ref": "#/parameters/Format"}
                ],
                "responses": {
                    "200": {"description": "Averages", "schema": {"$ref": "#/definitions/AveragesEnvelope"}},
                    "404": {"description": "Subject not taught in classroom", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Create or replace a label grade",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/AcademicPeriod"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored grade", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classrooms/{classroomID}/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "Grade grid of a classroom",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"name": "term_id", "in": "query", "type": "integer"},
                    {"$ref": "#/parameters/AcademicPeriod"}
                ],
                "responses": {
                    "200": {"description": "Grade grid", "schema": {"$ref": "#/definitions/GradesEnvelope"}}
                }
            }
        },
        "/api/v1/classrooms/{classroomID}/terms/{termID}/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "Grade grid of a classroom term",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"name": "termID", "in": "path", "required": true, "type": "integer"},
                    {"$ref": "#/parameters/AcademicPeriod"}
                ],
                "responses": {
                    "200": {"description": "Grade grid", "schema": {"$ref": "#/definitions/GradesEnvelope"}},
                    "400": {"description": "Term outside the academic period", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classrooms/{classroomID}/terms/{termID}/reinforcement-grades": {
            "get": {
                "tags": ["Reinforcement"],
                "summary": "Reinforcement grades of a classroom term",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/ClassroomID"},
                    {"name": "termID", "in": "path", "required": true, "type": "integer"},
                    {"$ref": "#/parameters/AcademicPeriod"}
                ],
                "responses": {
                    "200": {"description": "Reinforcement grades", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reinforcement-grades": {
            "post": {
                "tags": ["Reinforcement"],
                "summary": "Record a reinforcement grade",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/AcademicPeriod"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReinforcementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reinforcement-grades/{id}": {
            "delete": {
                "tags": ["Reinforcement"],
                "summary": "Delete a reinforcement grade",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"$ref": "#/parameters/AcademicPeriod"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "ClassroomID": {"name": "classroomID", "in": "path", "required": true, "type": "integer"},
        "AcademicPeriod": {"name": "X-Academic-Period", "in": "header", "type": "integer", "description": "Selected academic period; academic_period_id query is accepted too"},
        "Mode": {"name": "mode", "in": "query", "type": "string", "enum": ["SUM", "SUM_DIVIDED_BY_BUCKETS"]},
        "Group": {"name": "group", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Partial group as name:term1,term2"},
        "GroupSize": {"name": "group_size", "in": "query", "type": "integer", "description": "Adjacent terms per partial group when no group is given"},
        "Format": {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv"]}
    },
    "definitions": {
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
        "Diagnostic": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["INVALID_WEIGHT", "INVALID_INPUT"]},
                "student_id": {"type": "integer"},
                "term": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "TermAverage": {
            "type": "object",
            "properties": {
                "term": {"type": "string"},
                "average": {"type": "number"},
                "weight": {"type": "number"},
                "ave_factor": {"type": "number"},
                "grade_count": {"type": "integer"},
                "includes_reinforcement": {"type": "boolean"},
                "label": {"type": "string", "enum": ["regular", "includes_reinforcement"]}
            }
        },
        "PartialAverage": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "terms": {"type": "array", "items": {"type": "string"}},
                "value": {"type": "number"},
                "contributing": {"type": "integer"}
            }
        },
        "Record": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "student_name": {"type": "string"},
                "per_term": {"type": "array", "items": {"$ref": "#/definitions/TermAverage"}},
                "partial_averages": {"type": "array", "items": {"$ref": "#/definitions/PartialAverage"}},
                "factor_sum": {"type": "number"},
                "final_average": {"type": "number"},
                "includes_reinforcement": {"type": "boolean"}
            }
        },
        "Result": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "integer"},
                "mode": {"type": "string"},
                "buckets": {"type": "integer"},
                "terms": {"type": "array", "items": {"type": "string"}},
                "records": {"type": "array", "items": {"$ref": "#/definitions/Record"}},
                "diagnostics": {"type": "array", "items": {"$ref": "#/definitions/Diagnostic"}},
                "rounded": {"type": "boolean"},
                "unweighted": {"type": "boolean"}
            }
        },
        "ClassroomAverages": {
            "type": "object",
            "properties": {
                "classroom_id": {"type": "integer"},
                "classroom_name": {"type": "string"},
                "academic_period_id": {"type": "integer"},
                "mode": {"type": "string"},
                "weighted": {"type": "boolean"},
                "terms": {"type": "array", "items": {"type": "string"}},
                "weights": {"type": "object", "additionalProperties": {"type": "number"}},
                "groups": {"type": "array", "items": {"type": "object"}},
                "subjects": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "subject_id": {"type": "integer"},
                            "subject_name": {"type": "string"},
                            "result": {"$ref": "#/definitions/Result"}
                        }
                    }
                },
                "diagnostics": {"type": "array", "items": {"$ref": "#/definitions/Diagnostic"}}
            }
        },
        "AveragesEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ClassroomAverages"},
                "meta": {"type": "object"}
            }
        },
        "GradesEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "classroom_id": {"type": "integer"},
                        "academic_period_id": {"type": "integer"},
                        "term_id": {"type": "integer"},
                        "grades": {
                            "type": "array",
                            "items": {
                                "type": "object",
                                "properties": {
                                    "student_id": {"type": "integer"},
                                    "subject_id": {"type": "integer"},
                                    "grades": {
                                        "type": "array",
                                        "items": {
                                            "type": "object",
                                            "properties": {
                                                "term_id": {"type": "integer"},
                                                "term": {"type": "string"},
                                                "label_id": {"type": "integer"},
                                                "label": {"type": "string"},
                                                "grade": {"type": "number", "x-nullable": true}
                                            }
                                        }
                                    }
                                }
                            }
                        }
                    }
                }
            }
        },
        "UpsertGradeRequest": {
            "type": "object",
            "required": ["classroom_id", "student_id", "subject_id", "term_id", "label_id"],
            "properties": {
                "classroom_id": {"type": "integer"},
                "student_id": {"type": "integer"},
                "subject_id": {"type": "integer"},
                "term_id": {"type": "integer"},
                "label_id": {"type": "integer"},
                "grade": {"type": "number", "minimum": 0, "maximum": 10}
            }
        },
        "CreateReinforcementRequest": {
            "type": "object",
            "required": ["classroom_id", "student_id", "subject_id", "term_id", "label"],
            "properties": {
                "classroom_id": {"type": "integer"},
                "student_id": {"type": "integer"},
                "subject_id": {"type": "integer"},
                "term_id": {"type": "integer"},
                "label": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "skill": {"type": "string"},
                "grade": {"type": "number", "minimum": 0, "maximum": 10}
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
