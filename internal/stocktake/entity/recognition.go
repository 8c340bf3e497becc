package entity

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// FlexNumber 兼容数值或字符串两种JSON形式的数量字段
type FlexNumber string

// UnmarshalJSON 接受 12 / 12.0 / "12" / "" / null
func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*n = FlexNumber(strings.TrimSpace(s))
	return nil
}

// MarshalJSON 始终以字符串形式输出
func (n FlexNumber) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(n))), nil
}

// Int 数值强转。空串或非数值返回false
func (n FlexNumber) Int() (int, bool) {
	s := string(n)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// RecognitionResult 网关上报的单储位识别结果
// 以(TaskNo, BinLocation)为键，后到覆盖先到
type RecognitionResult struct {
	TaskNo      string     `json:"taskNo"`
	BinLocation string     `json:"binLocation"`
	Number      FlexNumber `json:"number"`
	Text        string     `json:"text"`
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Key 识别结果的关联键
func (r *RecognitionResult) Key() string {
	return r.TaskNo + "\x00" + r.BinLocation
}
