package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type patchBody struct {
	ZoneID Optional[uuid.UUID] `json:"zone_id"`
	Weight Optional[float64]   `json:"case_weight_lbs"`
}

func TestOptionalDistinguishesAbsentFromNull(t *testing.T) {
	var body patchBody
	if err := json.Unmarshal([]byte(`{"zone_id": null}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.ZoneID.Set || body.ZoneID.Value != nil {
		t.Fatalf("expected explicit null, got %+v", body.ZoneID)
	}
	if body.Weight.Set {
		t.Fatalf("absent field must not be set")
	}
}

func TestOptionalParsesValue(t *testing.T) {
	id := uuid.New()
	var body patchBody
	payload := []byte(`{"zone_id":"` + id.String() + `","case_weight_lbs":40}`)
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.ZoneID.Value == nil || *body.ZoneID.Value != id {
		t.Fatalf("unexpected zone id %+v", body.ZoneID)
	}
	if body.Weight.Value == nil || *body.Weight.Value != 40 {
		t.Fatalf("unexpected weight %+v", body.Weight)
	}
}

func TestOptionalRejectsInvalid(t *testing.T) {
	var body patchBody
	if err := json.Unmarshal([]byte(`{"zone_id":"nope"}`), &body); err == nil {
		t.Fatal("expected error for invalid uuid")
	}
}
