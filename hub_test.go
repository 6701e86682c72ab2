package broadctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

const testDID = "00000000000000000000a043b0d0783a"

func TestGetSubDevicesPagination(t *testing.T) {
	d, fake := authed(t, 0xA59C)

	// Seven paired sub-devices: the enumeration needs two pages.
	var roster []SubDevice
	for i := 0; i < 7; i++ {
		roster = append(roster, SubDevice{
			DID:  fmt.Sprintf("%032x", i+1),
			Name: fmt.Sprintf("switch-%d", i+1),
		})
	}

	var queries []subDeviceQuery
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		_, doc := decodeStateEnvelope(t, payload)
		var q subDeviceQuery
		if err := json.Unmarshal(doc, &q); err != nil {
			t.Fatalf("unmarshal query: %v", err)
		}
		queries = append(queries, q)

		end := q.Index + q.Count
		if end > len(roster) {
			end = len(roster)
		}
		resp, err := packState(0, subDeviceList{
			Total: len(roster),
			Index: q.Index,
			List:  roster[q.Index:end],
		})
		if err != nil {
			t.Fatalf("pack page: %v", err)
		}
		return 0, resp
	}

	subs, err := d.GetSubDevices()
	if err != nil {
		t.Fatalf("GetSubDevices() error = %v", err)
	}
	if len(subs) != 7 {
		t.Fatalf("sub-device count = %d, want 7", len(subs))
	}
	if subs[6].Name != "switch-7" {
		t.Errorf("last sub-device = %+v", subs[6])
	}
	if len(queries) != 2 {
		t.Fatalf("query count = %d, want 2", len(queries))
	}
	if queries[0].Index != 0 || queries[1].Index != 5 {
		t.Errorf("page indexes = %d, %d; want 0, 5", queries[0].Index, queries[1].Index)
	}
}

func TestSubDeviceState(t *testing.T) {
	d, fake := authed(t, 0xA59C)

	device := map[string]any{"did": testDID, "pwr1": float64(0), "pwr2": float64(1)}
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		flag, doc := decodeStateEnvelope(t, payload)
		var req map[string]any
		if err := json.Unmarshal(doc, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if req["did"] != testDID {
			t.Errorf("did = %v, want %s", req["did"], testDID)
		}
		if flag == stateFlagWrite {
			for k, v := range req {
				device[k] = v
			}
		}
		resp, err := packState(0, device)
		if err != nil {
			t.Fatalf("pack state: %v", err)
		}
		return 0, resp
	}

	state, err := d.GetSubDeviceState(testDID)
	if err != nil {
		t.Fatalf("GetSubDeviceState() error = %v", err)
	}
	if state.Pwr2 == nil || *state.Pwr2 != 1 {
		t.Error("pwr2 not decoded")
	}

	on := 1
	echo, err := d.SetSubDeviceState(testDID, SubDeviceState{Pwr1: &on})
	if err != nil {
		t.Fatalf("SetSubDeviceState() error = %v", err)
	}
	if echo.Pwr1 == nil || *echo.Pwr1 != 1 {
		t.Error("write echo missing pwr1")
	}
}

func TestSubDeviceDIDValidation(t *testing.T) {
	d, _ := authed(t, 0xA59C)

	for _, did := range []string{"", "xyz", "00112233", testDID + "00"} {
		if _, err := d.GetSubDeviceState(did); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("did %q: error = %v, want ErrInvalidArgument", did, err)
		}
		if _, err := d.SetSubDeviceState(did, SubDeviceState{}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("did %q: set error = %v, want ErrInvalidArgument", did, err)
		}
	}
}
