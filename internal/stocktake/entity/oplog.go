package entity

import "time"

// 操作类型
const (
	OpTypeInventory = "inventory"
	OpTypeLogin     = "login"
	OpTypeSystem    = "system"
	OpTypeExport    = "export"
)

// 操作结果
const (
	OpStatusSuccess = "success"
	OpStatusFailed  = "failed"
)

// OperationLogEntry 操作日志条目。只追加，新的在前
type OperationLogEntry struct {
	ID            string                 `json:"id"`
	Timestamp     time.Time              `json:"timestamp"`
	OperationType string                 `json:"operation_type"`
	UserID        string                 `json:"user_id"`
	UserName      string                 `json:"user_name"`
	Action        string                 `json:"action"`
	Target        string                 `json:"target,omitempty"`
	Status        string                 `json:"status"`
	Details       map[string]interface{} `json:"details,omitempty"`
	IPAddress     string                 `json:"ip_address,omitempty"`
}
