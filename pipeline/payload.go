package pipeline

import (
	"crypto/md5" //nolint:gosec // content-md5 is the store's integrity convention
	"encoding/base64"
	"encoding/json"
	"slices"
	"strconv"
	"time"
)

// TimestampLayout renders updatedAt in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Payload is the published snapshot. IDs is strictly ascending and RAP holds
// exactly one entry per ID in IDs. Treat it as immutable once assembled.
type Payload struct {
	UpdatedAt time.Time
	IDs       []EntityID
	RAP       map[EntityID]int64
}

type wirePayload struct {
	UpdatedAt string     `json:"updatedAt"`
	IDs       []EntityID `json:"ids"`
	RAP       orderedRAP `json:"rap"`
}

// orderedRAP encodes the rap object with its keys in the order of ids, which
// is ascending numeric order for an assembled payload.
type orderedRAP struct {
	ids []EntityID
	rap map[EntityID]int64
}

func (o orderedRAP) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(o.ids)*16)
	buf = append(buf, '{')
	for i, id := range o.ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = strconv.AppendInt(buf, int64(id), 10)
		buf = append(buf, '"', ':')
		buf = strconv.AppendInt(buf, o.rap[id], 10)
	}
	return append(buf, '}'), nil
}

// Assemble keeps the discovered IDs that have a price, sorts them and stamps
// the payload with now. It does no I/O.
func Assemble(discovered IDSet, enrichment map[EntityID]int64, now time.Time) Payload {
	ids := make([]EntityID, 0, len(enrichment))
	for id := range discovered {
		if _, ok := enrichment[id]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	rap := make(map[EntityID]int64, len(ids))
	for _, id := range ids {
		rap[id] = enrichment[id]
	}

	return Payload{UpdatedAt: now.UTC(), IDs: ids, RAP: rap}
}

// Canonical returns the exact bytes that get published:
//
//	{"updatedAt":"...","ids":[...],"rap":{"<id>":<n>,...}}
//
// rap keys follow IDs, so they appear in ascending numeric order and equal
// payloads always produce equal bytes. Only IDs present in both IDs and RAP
// are encoded into rap.
func (p Payload) Canonical() ([]byte, error) {
	w := wirePayload{
		UpdatedAt: p.UpdatedAt.UTC().Format(TimestampLayout),
		IDs:       p.IDs,
		RAP:       orderedRAP{rap: p.RAP},
	}
	if w.IDs == nil {
		w.IDs = []EntityID{}
	}
	for _, id := range w.IDs {
		if _, ok := p.RAP[id]; ok {
			w.RAP.ids = append(w.RAP.ids, id)
		}
	}
	return json.Marshal(w)
}

// Digest returns base64(md5(body)).
func Digest(body []byte) string {
	sum := md5.Sum(body) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:])
}
