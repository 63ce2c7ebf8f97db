// Package docs описание API для swagger UI на /docs/.
// Пересобирается командой swag init -g cmd/studio-scheduler/main.go по аннотациям обработчиков.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.swagger.io/support",
            "email": "support@swagger.io"
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
        "/templates": {
            "post": {
                "description": "Сохраняет шаблон и разворачивает его в занятия на весь период",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Templates"],
                "summary": "Создать шаблон расписания",
                "parameters": [
                    {
                        "description": "Данные шаблона",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.DummyTemplate"}
                    }
                ],
                "responses": {
                    "201": {"description": "Шаблон и идентификаторы занятий", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.Response"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Внутренняя ошибка", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/templates/{id}": {
            "put": {
                "description": "Заменяет шаблон и пересобирает будущие занятия без записей",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Templates"],
                "summary": "Изменить шаблон расписания",
                "parameters": [
                    {"type": "integer", "description": "ID шаблона", "name": "id", "in": "path", "required": true},
                    {
                        "description": "Новые данные шаблона",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.DummyTemplate"}
                    }
                ],
                "responses": {
                    "200": {"description": "Шаблон и идентификаторы занятий", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный ID или JSON", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Шаблон не найден", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Конфликт с существующими записями", "schema": {"$ref": "#/definitions/response.Response"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "delete": {
                "description": "Удаляет шаблон и его будущие занятия без записей",
                "produces": ["application/json"],
                "tags": ["Templates"],
                "summary": "Удалить шаблон расписания",
                "parameters": [
                    {"type": "integer", "description": "ID шаблона", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "ID удалённого шаблона", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный ID", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Шаблон не найден", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "У занятий есть записи", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/templates/{id}/occurrences": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Templates"],
                "summary": "Список занятий шаблона",
                "parameters": [
                    {"type": "integer", "description": "ID шаблона", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Занятия по возрастанию даты", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный ID", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Шаблон не найден", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/occurrences/{id}/bookings": {
            "post": {
                "security": [{"MemberID": []}],
                "description": "Занимает место и списывает занятие с активного абонемента участника",
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Записаться на занятие",
                "parameters": [
                    {"type": "integer", "description": "ID занятия", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Запись и остаток занятий", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный ID", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет участника", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Занятие не найдено", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Мест нет, уже записан или не хватает занятий", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/bookings/{id}": {
            "delete": {
                "security": [{"MemberID": []}],
                "description": "Отменяет запись участника, при раннем отказе возвращает занятие на абонемент",
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Отменить запись",
                "parameters": [
                    {"type": "integer", "description": "ID записи", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Запись, исход возврата и остаток", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный ID", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет участника", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Чужая запись", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Запись не найдена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Запись уже не активна", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/checkins": {
            "post": {
                "description": "Проверяет код участника на входе и отмечает посещение",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Checkins"],
                "summary": "Отметить вход по коду",
                "parameters": [
                    {
                        "description": "Код участника",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.DummyCheckin"}
                    }
                ],
                "responses": {
                    "200": {"description": "Отметка и остаток занятий", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Код не найден", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Уже отмечен или нет занятий на абонементе", "schema": {"$ref": "#/definitions/response.Response"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/reconcile": {
            "post": {
                "description": "Отмечает пропуски по прошедшим занятиям вне расписания cron",
                "produces": ["application/json"],
                "tags": ["Reconcile"],
                "summary": "Запустить сверку посещений",
                "responses": {
                    "200": {"description": "Итог прохода", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Проход прерван, в data частичный итог", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "models.DummyCheckin": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string"}
            }
        },
        "models.DummyTemplate": {
            "type": "object",
            "required": ["class_id", "end_time", "max_participants", "repetition", "start_time", "trainer_id"],
            "properties": {
                "class_id": {"type": "integer"},
                "day_of_week": {"type": "integer", "maximum": 6, "minimum": 0},
                "end_date": {"type": "string"},
                "end_time": {"type": "string"},
                "is_active": {"type": "boolean"},
                "max_participants": {"type": "integer"},
                "repetition": {"type": "string", "enum": ["once", "daily", "weekly"]},
                "schedule_date": {"type": "string"},
                "start_date": {"type": "string"},
                "start_time": {"type": "string"},
                "trainer_id": {"type": "integer"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "MemberID": {
            "description": "Идентификатор участника, проставляется шлюзом.",
            "type": "apiKey",
            "name": "X-Member-ID",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Studio Scheduler API",
	Description:      "API расписания студии: шаблоны занятий, записи участников, отметки на входе и сверка",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InfoInstanceName, SwaggerInfo)
}
