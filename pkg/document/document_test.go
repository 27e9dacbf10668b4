package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeTruncatesToMillisUTC(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	rec := &Record{
		Uuid:       "0c43e9dd-1a9d-4cf2-9e03-2f0c15f9a0f3",
		ModifiedOn: time.Date(2026, 3, 14, 15, 9, 26, 535897932, loc),
	}

	doc := Encode("person", "peersync/node-a", []*Record{rec})

	assert.Equal(t, Version, doc.Version)
	assert.Equal(t, "person", doc.Resource)
	assert.Equal(t, time.UTC, rec.ModifiedOn.Location())
	assert.Equal(t, 535000000, rec.ModifiedOn.Nanosecond())
}

func TestDecodeValid(t *testing.T) {
	data := []byte(`{
		"version": "1.0",
		"generator": "peersync/node-b",
		"resource": "person",
		"records": [
			{
				"uuid": "0c43e9dd-1a9d-4cf2-9e03-2f0c15f9a0f3",
				"modified_on": "2026-03-14T15:09:26.535Z",
				"attributes": {"first_name": "Asha"},
				"references": {"organisation": "7f3d0a4e-93de-4cbb-8d2a-85c2e0ee2b41"}
			}
		]
	}`)

	doc, err := Decode(data)
	assert.NoError(t, err)
	assert.Len(t, doc.Records, 1)
	assert.Equal(t, "Asha", doc.Records[0].Attributes["first_name"])
	assert.Equal(t, "7f3d0a4e-93de-4cbb-8d2a-85c2e0ee2b41", doc.Records[0].References["organisation"])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing version", `{"resource": "person", "records": []}`},
		{"missing resource", `{"version": "1.0", "records": []}`},
		{"invalid uuid", `{"version": "1.0", "resource": "person", "records": [{"uuid": "not-a-uuid", "modified_on": "2026-03-14T15:09:26Z"}]}`},
		{"missing modified_on", `{"version": "1.0", "resource": "person", "records": [{"uuid": "0c43e9dd-1a9d-4cf2-9e03-2f0c15f9a0f3"}]}`},
		{"null record", `{"version": "1.0", "resource": "person", "records": [null]}`},
		{"not json", `records galore`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			assert.Error(t, err)
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestDecodeKeepsUnknownFields(t *testing.T) {
	data := []byte(`{
		"version": "2.5",
		"resource": "person",
		"priority": "high",
		"records": [
			{
				"uuid": "0c43e9dd-1a9d-4cf2-9e03-2f0c15f9a0f3",
				"modified_on": "2026-03-14T15:09:26Z",
				"signature": "abcd"
			}
		]
	}`)

	doc, err := Decode(data)
	assert.NoError(t, err)
	assert.Contains(t, doc.Extra, "priority")
	assert.Contains(t, doc.Records[0].Extra, "signature")
	assert.NotContains(t, doc.Extra, "version")
}

func TestOutcomeAccepted(t *testing.T) {
	out := NewOutcomeDocument("person", "peersync/node-a")
	out.Add("u1", OutcomeCreated, "")
	out.Add("u2", OutcomeRejected, "missing first_name")
	out.Add("u3", OutcomeSkipped, "skipped-older")

	assert.Len(t, out.Results, 3)
	assert.True(t, out.Results[0].Accepted())
	assert.False(t, out.Results[1].Accepted())
	assert.True(t, out.Results[2].Accepted())
}

func TestOutcomeRoundTrip(t *testing.T) {
	out := NewOutcomeDocument("person", "peersync/node-a")
	out.Add("u1", OutcomeUpdated, "")

	data, err := json.Marshal(out)
	assert.NoError(t, err)

	decoded, err := DecodeOutcome(data)
	assert.NoError(t, err)
	assert.Equal(t, "person", decoded.Resource)
	assert.Equal(t, OutcomeUpdated, decoded.Results[0].Status)
}
