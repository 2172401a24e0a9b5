package alerting

import (
	"strings"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// Lookups bundles the channel and compset tables every compile and
// session operation resolves names against. The slices are borrowed:
// the session never mutates them.
type Lookups struct {
	Properties []entities.Property
	Channels   []entities.Channel
}

// Subscriber returns the subscriber's own property, or nil when the
// lookup table has none.
func (l *Lookups) Subscriber() *entities.Property {
	for i := range l.Properties {
		if l.Properties[i].IsSubscriber {
			return &l.Properties[i]
		}
	}
	return nil
}

// CompetitorIDs returns every non-subscriber property id.
func (l *Lookups) CompetitorIDs() []uint {
	var ids []uint
	for i := range l.Properties {
		if !l.Properties[i].IsSubscriber {
			ids = append(ids, l.Properties[i].PropertyID)
		}
	}
	return ids
}

// PropertyByHMID translates a legacy hotel-market id into the canonical
// property. Older form clients still key selections by hmid; the
// translation happens here, at the boundary, so nothing downstream ever
// sees both id spaces.
func (l *Lookups) PropertyByHMID(hmid uint) (*entities.Property, bool) {
	for i := range l.Properties {
		if l.Properties[i].HMID == hmid {
			return &l.Properties[i], true
		}
	}
	return nil, false
}

// propertyNames joins the names of properties whose id appears in ids,
// preserving lookup-table order. Unknown ids contribute nothing: a rule
// referencing properties that left the compset still renders.
func propertyNames(properties []entities.Property, ids []uint) string {
	if len(ids) == 0 {
		return ""
	}
	want := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var names []string
	for i := range properties {
		if _, ok := want[properties[i].PropertyID]; ok {
			names = append(names, properties[i].Name)
		}
	}
	return strings.Join(names, ", ")
}

// channelNames joins the names of channels whose cid appears in ids.
// Missing cids degrade to an empty contribution, same as properties.
func channelNames(channels []entities.Channel, ids []uint) string {
	if len(ids) == 0 {
		return ""
	}
	want := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var names []string
	for i := range channels {
		if _, ok := want[channels[i].CID]; ok {
			names = append(names, channels[i].Name)
		}
	}
	return strings.Join(names, ", ")
}

// channelName resolves a single channel id, empty when unknown.
func channelName(channels []entities.Channel, cid uint) string {
	for i := range channels {
		if channels[i].CID == cid {
			return channels[i].Name
		}
	}
	return ""
}

// propertyName resolves a single property id, empty when unknown.
func propertyName(properties []entities.Property, propertyID uint) string {
	for i := range properties {
		if properties[i].PropertyID == propertyID {
			return properties[i].Name
		}
	}
	return ""
}
