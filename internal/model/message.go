package model

// Message は公開コンタクトフォームからの送信内容を表す。
// 公開側からは追加のみ可能で、削除は認証済みの操作者に限られる。
type Message struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Subject  string `json:"subject,omitempty"`
	Body     string `json:"message"`
}

// Record はmessagesテーブルへ挿入する行を返す。
func (m Message) Record() Record {
	return Record{
		"fullname": m.FullName,
		"email":    m.Email,
		"subject":  nullIfEmpty(m.Subject),
		"body":     m.Body,
	}
}
