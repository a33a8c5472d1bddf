package cgr

import (
	"errors"
	"testing"
)

// fourNodeCfg builds the reference schedule used throughout the tests:
// A->B [0,100) rate 10 delay 1, B->D [10,100) rate 10 delay 1,
// A->C [0,50) rate 5 delay 5, C->D [20,100) rate 5 delay 1
func fourNodeCfg() *ContactPlanCfg {
	cpc := CreateContactPlanCfg("fourNode")
	cpc.AddNode("A", 0.0, 0.0, 0.0)
	cpc.AddNode("B", 0.0, 0.0, 0.0)
	cpc.AddNode("C", 0.0, 0.0, 0.0)
	cpc.AddNode("D", 0.0, 0.0, 0.0)
	cpc.AddContact("A", "B", 0.0, 100.0, 10.0, 1.0)
	cpc.AddContact("B", "D", 10.0, 100.0, 10.0, 1.0)
	cpc.AddContact("A", "C", 0.0, 50.0, 5.0, 5.0)
	cpc.AddContact("C", "D", 20.0, 100.0, 5.0, 1.0)

	return cpc
}

func fourNodePlan(t *testing.T) *ContactPlan {
	t.Helper()
	cp, err := BuildContactPlan(fourNodeCfg())
	if err != nil {
		t.Fatalf("building four node plan: %v", err)
	}
	return cp
}

func TestBuildContactPlanRejections(t *testing.T) {
	cases := []struct {
		name  string
		build func(cpc *ContactPlanCfg)
	}{
		{"inverted window", func(cpc *ContactPlanCfg) {
			cpc.AddContact("A", "B", 10.0, 5.0, 1.0, 0.0)
		}},
		{"empty window", func(cpc *ContactPlanCfg) {
			cpc.AddContact("A", "B", 5.0, 5.0, 1.0, 0.0)
		}},
		{"absent transmitter", func(cpc *ContactPlanCfg) {
			cpc.AddContact("X", "B", 0.0, 5.0, 1.0, 0.0)
		}},
		{"absent receiver", func(cpc *ContactPlanCfg) {
			cpc.AddContact("A", "X", 0.0, 5.0, 1.0, 0.0)
		}},
		{"overlapping pair", func(cpc *ContactPlanCfg) {
			cpc.AddContact("A", "B", 0.0, 10.0, 1.0, 0.0)
			cpc.AddContact("A", "B", 5.0, 15.0, 1.0, 0.0)
		}},
		{"non-positive rate", func(cpc *ContactPlanCfg) {
			cpc.AddContact("A", "B", 0.0, 5.0, 0.0, 0.0)
		}},
		{"negative delay", func(cpc *ContactPlanCfg) {
			cpc.AddContact("A", "B", 0.0, 5.0, 1.0, -1.0)
		}},
		{"confidence above one", func(cpc *ContactPlanCfg) {
			cpc.Contacts = append(cpc.Contacts,
				ContactDesc{TxNode: "A", RxNode: "B", Start: 0.0, End: 5.0,
					Rate: 1.0, Confidence: 1.5})
		}},
		{"duplicated node", func(cpc *ContactPlanCfg) {
			cpc.AddNode("A", 0.0, 0.0, 0.0)
		}},
		{"range absent node", func(cpc *ContactPlanCfg) {
			cpc.AddRange("A", "X", 0.0, 5.0, 1.0)
		}},
		{"range inverted window", func(cpc *ContactPlanCfg) {
			cpc.AddRange("A", "B", 5.0, 5.0, 1.0)
		}},
	}

	for _, tc := range cases {
		cpc := CreateContactPlanCfg(tc.name)
		cpc.AddNode("A", 0.0, 0.0, 0.0)
		cpc.AddNode("B", 0.0, 0.0, 0.0)
		tc.build(cpc)

		_, err := BuildContactPlan(cpc)
		if err == nil {
			t.Errorf("%s: plan accepted, want rejection", tc.name)
			continue
		}
		var icp *InvalidContactPlanError
		if !errors.As(err, &icp) {
			t.Errorf("%s: got %v, want InvalidContactPlanError", tc.name, err)
		}
	}
}

func TestAdjacentWindowsAccepted(t *testing.T) {
	cpc := CreateContactPlanCfg("adjacent")
	cpc.AddNode("A", 0.0, 0.0, 0.0)
	cpc.AddNode("B", 0.0, 0.0, 0.0)

	// half-open windows: [0,10) and [10,20) do not overlap
	cpc.AddContact("A", "B", 0.0, 10.0, 1.0, 0.0)
	cpc.AddContact("A", "B", 10.0, 20.0, 1.0, 0.0)

	_, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("adjacent windows rejected: %v", err)
	}
}

func TestContactDefaults(t *testing.T) {
	cp := fourNodePlan(t)

	for idx := 0; idx < cp.numberOfContacts; idx++ {
		cnt := cp.ContactByID[idx]
		if cnt.Confidence != 1.0 {
			t.Errorf("contact %d: confidence %v, want default 1.0", idx, cnt.Confidence)
		}
		wantVol := cnt.Rate * (cnt.End - cnt.Start)
		if cnt.Volume != wantVol {
			t.Errorf("contact %d: volume %v, want nominal %v", idx, cnt.Volume, wantVol)
		}
		if cnt.Residual != cnt.Volume {
			t.Errorf("contact %d: residual %v, want full volume %v", idx, cnt.Residual, cnt.Volume)
		}
	}
}

func TestContactsFrom(t *testing.T) {
	cpc := CreateContactPlanCfg("fromScan")
	cpc.AddNode("A", 0.0, 0.0, 0.0)
	cpc.AddNode("B", 0.0, 0.0, 0.0)
	cpc.AddNode("C", 0.0, 0.0, 0.0)

	// added out of start order on purpose
	cpc.AddContact("A", "B", 30.0, 40.0, 1.0, 0.0)
	cpc.AddContact("A", "C", 5.0, 12.0, 1.0, 0.0)
	cpc.AddContact("A", "B", 0.0, 10.0, 1.0, 0.0)

	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	nodeA := cp.NodeByName["A"]

	got := cp.ContactsFrom(nodeA.Number, 0.0)
	if len(got) != 3 {
		t.Fatalf("at time 0 got %d contacts, want 3", len(got))
	}
	for idx := 1; idx < len(got); idx++ {
		if got[idx-1].Start > got[idx].Start {
			t.Fatalf("contacts out of start order: %v then %v", got[idx-1].Start, got[idx].Start)
		}
	}

	// at time 11 the [0,10) window has closed, [5,12) is still underway
	got = cp.ContactsFrom(nodeA.Number, 11.0)
	if len(got) != 2 {
		t.Fatalf("at time 11 got %d contacts, want 2", len(got))
	}
	if got[0].End != 12.0 {
		t.Errorf("first open contact ends at %v, want the underway window ending 12", got[0].End)
	}
}

func TestDelayTo(t *testing.T) {
	cpc := fourNodeCfg()

	// a range record overriding the A->B contact's own delay over [0,10)
	cpc.AddRange("A", "B", 0.0, 10.0, 3.0)

	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}

	var cntAB *Contact
	for idx := 0; idx < cp.numberOfContacts; idx++ {
		cnt := cp.ContactByID[idx]
		if cnt.TxNode.Name == "A" && cnt.RxNode.Name == "B" {
			cntAB = cnt
		}
	}
	if cntAB == nil {
		t.Fatalf("plan lost the A->B contact")
	}

	if got := cp.DelayTo(cntAB, 5.0); got != 3.0 {
		t.Errorf("delay at 5 is %v, want range record's 3", got)
	}
	// past the range window the contact's own delay applies
	if got := cp.DelayTo(cntAB, 20.0); got != 1.0 {
		t.Errorf("delay at 20 is %v, want contact's 1", got)
	}
}

func TestEffectiveRate(t *testing.T) {
	cpc := CreateContactPlanCfg("capacity")
	cpc.AddNode("A", 0.0, 4.0, 0.0) // tx bound 4
	cpc.AddNode("B", 6.0, 0.0, 2.0) // rx bound 6, proc bound 2
	cpc.AddContact("A", "B", 0.0, 10.0, 10.0, 0.0)

	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	cnt := cp.ContactByID[0]

	cases := []struct {
		name string
		cfg  SimCfg
		want float64
	}{
		{"no enforcement", SimCfg{}, 10.0},
		{"tx bound", SimCfg{EnforceTxRate: true}, 4.0},
		{"rx bound", SimCfg{EnforceRxRate: true}, 6.0},
		{"proc bound", SimCfg{EnforceProcRate: true}, 2.0},
		{"all bounds", SimCfg{EnforceTxRate: true, EnforceRxRate: true, EnforceProcRate: true}, 2.0},
	}

	for _, tc := range cases {
		if got := cp.effectiveRate(cnt, &tc.cfg); got != tc.want {
			t.Errorf("%s: effective rate %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDescribeCfgRoundTrip(t *testing.T) {
	cpc := fourNodeCfg()
	cpc.AddRange("A", "B", 0.0, 50.0, 2.0)
	cpc.AddRange("B", "A", 0.0, 50.0, 2.0)

	cp, err := BuildContactPlan(cpc)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}

	back := cp.DescribeCfg()
	if len(back.Nodes) != len(cpc.Nodes) {
		t.Fatalf("round trip lost nodes: %d vs %d", len(back.Nodes), len(cpc.Nodes))
	}
	if len(back.Contacts) != len(cpc.Contacts) {
		t.Fatalf("round trip lost contacts: %d vs %d", len(back.Contacts), len(cpc.Contacts))
	}
	if len(back.Ranges) != len(cpc.Ranges) {
		t.Fatalf("round trip lost ranges: %d vs %d", len(back.Ranges), len(cpc.Ranges))
	}

	// the rebuilt description must itself build an equivalent plan
	cp2, err := BuildContactPlan(back)
	if err != nil {
		t.Fatalf("rebuilt description rejected: %v", err)
	}
	if cp2.numberOfContacts != cp.numberOfContacts || cp2.numberOfNodes != cp.numberOfNodes {
		t.Fatalf("rebuilt plan differs: %d/%d nodes, %d/%d contacts",
			cp2.numberOfNodes, cp.numberOfNodes, cp2.numberOfContacts, cp.numberOfContacts)
	}
}
