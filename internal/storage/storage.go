// Package storage はアップロードファイルを保存するBlobストアを提供する。
package storage

import (
	"context"
	"time"
)

// Object はBlobストア上のオブジェクトを表す。
type Object struct {
	Path         string
	LastModified time.Time
}

// BlobStore はパスで指定するオブジェクトストレージのインターフェース。
type BlobStore interface {
	// Put はdataをpathに書き込む。既存のオブジェクトは上書きしない。
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// PublicURL はpathの公開URLを返す。
	PublicURL(path string) string

	// Remove はpathのオブジェクトを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, path string) error

	// List はprefix配下の全オブジェクトを返す。
	List(ctx context.Context, prefix string) ([]Object, error)
}
