// Package docs 由 swag 注解生成的 OpenAPI 文档
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/api/v1/connections": {
            "get": {
                "tags": ["Connection"],
                "summary": "店铺连接列表",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ConnectionListResp"}}}
            }
        },
        "/api/v1/connections/{id}": {
            "delete": {
                "tags": ["Connection"],
                "summary": "解绑店铺",
                "description": "只删除连接本身，已同步的订单与账本保留",
                "parameters": [{"type": "integer", "description": "连接 ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "连接不存在"}}
            }
        },
        "/api/v1/connections/{id}/sync": {
            "post": {
                "tags": ["Sync"],
                "summary": "手动同步店铺数据",
                "description": "拉取时间窗口内的订单、联盟订单、结算单与商品；sync_type 为空表示全部",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "连接 ID", "name": "id", "in": "path", "required": true},
                    {"description": "同步参数", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.SyncRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SyncResponse"}},
                    "400": {"description": "参数错误"},
                    "404": {"description": "连接不存在"},
                    "422": {"description": "需要重新授权"},
                    "429": {"description": "限流中"}
                }
            }
        },
        "/api/v1/connections/{id}/reconcile": {
            "post": {
                "tags": ["Sync"],
                "summary": "生成每日账本",
                "description": "按 UTC 自然日汇总已同步的数据，只更新同步字段，手填字段保持不变",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "连接 ID", "name": "id", "in": "path", "required": true},
                    {"description": "对账参数", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ReconcileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ReconcileResponse"}},
                    "400": {"description": "参数错误"},
                    "404": {"description": "连接不存在"}
                }
            }
        },
        "/api/v1/oauth/authorize": {
            "get": {
                "tags": ["OAuth"],
                "summary": "获取店铺授权链接",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.AuthorizeResp"}}}
            }
        },
        "/api/v1/oauth/callback": {
            "get": {
                "tags": ["OAuth"],
                "summary": "店铺授权回调",
                "parameters": [
                    {"type": "string", "description": "授权码", "name": "code", "in": "query", "required": true},
                    {"type": "string", "description": "state", "name": "state", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ConnectionVO"}}, "400": {"description": "state 无效"}}
            }
        }
    },
    "definitions": {
        "dto.SyncRequest": {
            "type": "object",
            "properties": {
                "sync_type": {"type": "string", "enum": ["all", "orders", "affiliate_orders", "settlements", "products"]},
                "start_date": {"type": "string", "example": "2025-01-01"},
                "end_date": {"type": "string", "example": "2025-01-07"}
            }
        },
        "dto.EntityResultVO": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "count": {"type": "integer"},
                "created": {"type": "integer"},
                "retired": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "dto.SyncResponse": {
            "type": "object",
            "properties": {
                "connection_id": {"type": "integer"},
                "sync_type": {"type": "string"},
                "window_start": {"type": "string"},
                "window_end": {"type": "string"},
                "results": {"type": "object", "additionalProperties": {"$ref": "#/definitions/dto.EntityResultVO"}},
                "duration_ms": {"type": "integer"}
            }
        },
        "dto.ReconcileRequest": {
            "type": "object",
            "properties": {
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "platform_fee_percent": {"type": "number"}
            }
        },
        "dto.ReconcileResponse": {
            "type": "object",
            "properties": {
                "connection_id": {"type": "integer"},
                "days_updated": {"type": "integer"},
                "days": {"type": "array", "items": {"type": "string"}}
            }
        },
        "dto.ConnectionVO": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "platform": {"type": "string"},
                "seller_name": {"type": "string"},
                "shop_id": {"type": "string"},
                "shop_name": {"type": "string"},
                "shop_region": {"type": "string"},
                "sync_status": {"type": "string"},
                "sync_error": {"type": "string"},
                "last_sync_at": {"type": "string"},
                "access_token_expires_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "dto.ConnectionListResp": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "list": {"type": "array", "items": {"$ref": "#/definitions/dto.ConnectionVO"}}
            }
        },
        "dto.AuthorizeResp": {
            "type": "object",
            "properties": {"url": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Accelerator Sync API",
	Description:      "店铺数据同步与每日账本对账",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
