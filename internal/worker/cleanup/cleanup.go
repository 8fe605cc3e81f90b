// Package cleanup は孤立したメディアBlobの掃除ジョブを提供する。
// アップロード時の補償削除が失敗すると、どのmedia行からも参照されない
// Blobが残る。本ジョブはそれらを定期的に検出して削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/folio/internal/media"
	"github.com/hitoshi/folio/internal/repository"
	"github.com/hitoshi/folio/internal/storage"
)

// 参照確認クエリ1回あたりのパス数
const lookupBatchSize = 500

// Recorder は掃除結果のメトリクス記録先。
type Recorder interface {
	RecordOrphansRemoved(count int)
}

// OrphanSweepJob はmedia/配下の孤立Blobを削除するジョブ。
// 冪等で、何度実行しても参照中のBlobには触れない。
type OrphanSweepJob struct {
	blobs    storage.BlobStore
	index    repository.MediaPathIndex
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	// GracePeriod より新しいBlobは対象外とする。
	// アップロード中（Blob書き込み後、メタデータ挿入前）のBlobを消さないため。
	GracePeriod time.Duration
}

// NewOrphanSweepJob は新しいOrphanSweepJobを生成する。
// デフォルトの猶予期間は1時間。recorderはnilでもよい。
func NewOrphanSweepJob(blobs storage.BlobStore, index repository.MediaPathIndex, logger *slog.Logger, recorder Recorder) *OrphanSweepJob {
	return &OrphanSweepJob{
		blobs:       blobs,
		index:       index,
		logger:      logger,
		recorder:    recorder,
		now:         time.Now,
		GracePeriod: time.Hour,
	}
}

// Run は孤立Blobを検出して削除し、削除件数を返す。
// 個々のBlobの削除失敗はログに残して続行する。
func (j *OrphanSweepJob) Run(ctx context.Context) (int, error) {
	start := j.now()
	cutoff := start.Add(-j.GracePeriod)

	objects, err := j.blobs.List(ctx, media.PathPrefix)
	if err != nil {
		j.logger.Error("孤立Blob掃除のための一覧取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("Blob一覧の取得に失敗: %w", err)
	}

	var candidates []string
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			candidates = append(candidates, obj.Path)
		}
	}

	removed := 0
	for begin := 0; begin < len(candidates); begin += lookupBatchSize {
		end := min(begin+lookupBatchSize, len(candidates))
		batch := candidates[begin:end]

		referenced, err := j.index.ReferencedPaths(ctx, batch)
		if err != nil {
			j.logger.Error("Blobの参照確認に失敗しました",
				slog.String("error", err.Error()),
			)
			j.record(removed)
			return removed, fmt.Errorf("参照確認に失敗: %w", err)
		}

		for _, path := range batch {
			if referenced[path] {
				continue
			}
			if err := j.blobs.Remove(ctx, path); err != nil {
				j.logger.Warn("孤立Blobの削除に失敗しました",
					slog.String("storage_path", path),
					slog.String("error", err.Error()),
				)
				continue
			}
			removed++
		}
	}

	j.record(removed)
	j.logger.Info("孤立Blob掃除ジョブが完了しました",
		slog.Int("scanned_count", len(objects)),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("removed_count", removed),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)
	return removed, nil
}

func (j *OrphanSweepJob) record(removed int) {
	if j.recorder != nil && removed > 0 {
		j.recorder.RecordOrphansRemoved(removed)
	}
}
