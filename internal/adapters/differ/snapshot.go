package differ

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Limits bounds the size of collected trees. Zero values disable a limit.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

// snapshot collects c into a Snapshot and enforces the limits.
func (d *ThreeWayDiffer) snapshot(ctx context.Context, role string, c domain.Collector) (domain.Snapshot, error) {
	files, err := c.Collect(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to collect %s files: %w", role, err)
	}

	if d.limits.MaxFiles > 0 && len(files) > d.limits.MaxFiles {
		return domain.Snapshot{}, fmt.Errorf("%w: %s contains %s files, the limit is %s",
			domain.ErrSnapshotTooLarge, role,
			humanize.Comma(int64(len(files))), humanize.Comma(int64(d.limits.MaxFiles)))
	}

	snap := domain.NewSnapshot(files)
	size := snap.Size()
	if d.limits.MaxBytes > 0 && size > d.limits.MaxBytes {
		return domain.Snapshot{}, fmt.Errorf("%w: %s contains %s, the limit is %s",
			domain.ErrSnapshotTooLarge, role,
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(d.limits.MaxBytes)))
	}

	d.logger.Debug(ctx, "collected snapshot", map[string]interface{}{
		"role":  role,
		"files": snap.Len(),
		"size":  humanize.IBytes(uint64(size)),
	})

	return snap, nil
}
