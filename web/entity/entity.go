// Package entity defines data structures shared by the web layer.
package entity

// Msg is the standard AJAX response envelope.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj"`
}

// Pagination describes a paged collection response.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// AllSetting carries the tunables editable from the admin settings page.
type AllSetting struct {
	SessionMaxAge    int    `json:"sessionMaxAge" form:"sessionMaxAge"` // minutes
	PageSize         int    `json:"pageSize" form:"pageSize"`
	ContentCacheTTL  int    `json:"contentCacheTTL" form:"contentCacheTTL"` // seconds
	AuditRetainDays  int    `json:"auditRetainDays" form:"auditRetainDays"`
	TgBotEnable      bool   `json:"tgBotEnable" form:"tgBotEnable"`
	TgBotToken       string `json:"tgBotToken" form:"tgBotToken"`
	TgBotChatId      string `json:"tgBotChatId" form:"tgBotChatId"`
	TgBotLoginNotify bool   `json:"tgBotLoginNotify" form:"tgBotLoginNotify"`
	TimeLocation     string `json:"timeLocation" form:"timeLocation"`
}
