package syncer

import (
	"encoding/json"
	"time"

	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

// snapshotKeyPrefix namespaces emergency snapshots in the local store.
const snapshotKeyPrefix = "amctrack:emergency:"

// emergencySnapshot is the local fallback serialization written when a flush
// cannot complete, keyed by user id.
type emergencySnapshot struct {
	Stats               *models.StatsAggregate `json:"stats"`
	PendingAttempts     []models.AttemptRecord `json:"pendingAttempts"`
	NeedsDailyResetSave bool                   `json:"needsDailyResetSave"`
	Timestamp           time.Time              `json:"timestamp"`
	UserID              string                 `json:"userId"`
}

func snapshotKey(userID string) string {
	return snapshotKeyPrefix + userID
}

// writeSnapshot serializes the snapshot into the local store. Failures are
// logged, never propagated: the snapshot is a best-effort safety net.
func writeSnapshot(store kv.Store, snap *emergencySnapshot, log *logger.Logger) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error("failed to serialize emergency snapshot: %v", err)
		return
	}
	if err := store.Set(snapshotKey(snap.UserID), string(data)); err != nil {
		log.Error("failed to write emergency snapshot: %v", err)
		return
	}
	log.Info("emergency snapshot written: pending=%d", len(snap.PendingAttempts))
}

// readSnapshot consumes the snapshot for the given user. Consumption is
// strictly read-once: the key is deleted as soon as it has been read,
// whether or not the payload parses. Malformed JSON is treated as absence.
func readSnapshot(store kv.Store, userID string, log *logger.Logger) *emergencySnapshot {
	key := snapshotKey(userID)
	raw, ok, err := store.Get(key)
	if err != nil {
		log.Error("failed to read emergency snapshot: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	if err := store.Delete(key); err != nil {
		log.Warn("failed to delete emergency snapshot key: %v", err)
	}

	var snap emergencySnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		log.Warn("malformed emergency snapshot, discarding: %v", err)
		return nil
	}
	if snap.Stats == nil {
		log.Warn("emergency snapshot missing stats, discarding")
		return nil
	}
	return &snap
}
