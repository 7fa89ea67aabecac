package sql

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// rowModel is the single row shape shared by every queue table,
// whatever payload type T the queue in front of it carries: the value
// column holds T's JSON encoding, decoded by the codec layer in the
// root package. One struct per table (as the teacher does for its
// fixed "jobs" table) would require one Go type per queue path, which
// is unknowable at compile time, so every table instead shares this
// shape and is addressed dynamically via ModelTableExpr.
type rowModel struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	Key   string          `bun:"key,pk"`
	Value json.RawMessage `bun:"value,type:jsonb,notnull"`
	TTL   *time.Time      `bun:"ttl,nullzero,default:null"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
