package auditchain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"golang.org/x/crypto/blake2b"
)

// Hash считает blake2b-256 по содержимому записи и хэшу предыдущей записи.
func Hash(entry *entity.AuditEntry) string {
	actor := ""
	if entry.ActorID != nil {
		actor = entry.ActorID.String()
	}
	fields := map[string]any{
		"id":          entry.ID.String(),
		"actor_id":    actor,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID.String(),
		"action":      entry.Action,
		"payload":     string(entry.Payload),
		"prev_hash":   entry.PrevHash,
		"created_at":  entry.CreatedAt.UnixNano(),
	}
	b, _ := json.Marshal(fields)
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Seal привязывает запись к цепочке.
func Seal(entry *entity.AuditEntry, prevHash string) {
	entry.PrevHash = prevHash
	entry.EntryHash = Hash(entry)
}

// BrokenLink описывает первое найденное нарушение цепочки.
type BrokenLink struct {
	Seq    int64
	Reason string
}

func (b *BrokenLink) Error() string {
	return fmt.Sprintf("цепочка аудита нарушена на записи %d: %s", b.Seq, b.Reason)
}

// Verify проверяет записи, упорядоченные по возрастанию Seq. prevHash - хэш записи перед первой.
func Verify(entries []*entity.AuditEntry, prevHash string) error {
	for _, e := range entries {
		if e.PrevHash != prevHash {
			return &BrokenLink{Seq: e.Seq, Reason: "prev_hash не совпадает с предыдущей записью"}
		}
		if Hash(e) != e.EntryHash {
			return &BrokenLink{Seq: e.Seq, Reason: "содержимое записи изменено"}
		}
		prevHash = e.EntryHash
	}
	return nil
}
