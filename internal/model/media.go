package model

// Media はアップロード済みファイルのメタデータを表す。
// StoragePathはレコードが存在する間、必ずBlobストア上の実体を指す。
type Media struct {
	FileName    string
	FileType    string
	SizeBytes   int64
	StoragePath string
	URL         string
	Alt         string
	ProjectID   string
	BlogID      string
	ServiceID   string
}

// Record はmediaテーブルへ挿入する行を返す。
// 任意項目が空の場合はNULLとして保存する。
func (m Media) Record() Record {
	return Record{
		"file_name":    m.FileName,
		"file_type":    m.FileType,
		"size_bytes":   m.SizeBytes,
		"storage_path": m.StoragePath,
		"url":          m.URL,
		"alt":          nullIfEmpty(m.Alt),
		"project_id":   nullIfEmpty(m.ProjectID),
		"blog_id":      nullIfEmpty(m.BlogID),
		"service_id":   nullIfEmpty(m.ServiceID),
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
