package domain

import (
	"testing"
)

func TestMakeKey(t *testing.T) {
	t.Run("builds kind://id form", func(t *testing.T) {
		key := MakeKey(KindDevice, "1234")
		if key != "device://1234" {
			t.Errorf("expected device://1234, got %s", key)
		}
	})

	t.Run("subnet keys keep CIDR notation", func(t *testing.T) {
		key := MakeKey(KindSubnet, "10.0.0.0/24")
		if key != "subnet://10.0.0.0/24" {
			t.Errorf("expected subnet://10.0.0.0/24, got %s", key)
		}
	})
}

func TestParseKey(t *testing.T) {
	t.Run("round-trips a valid key", func(t *testing.T) {
		kind, id, err := ParseKey("router://10.0.0.1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if kind != KindRouter {
			t.Errorf("expected router kind, got %s", kind)
		}
		if id != "10.0.0.1" {
			t.Errorf("expected id 10.0.0.1, got %s", id)
		}
	})

	t.Run("rejects missing separator", func(t *testing.T) {
		if _, _, err := ParseKey("device1234"); err == nil {
			t.Error("expected error for key without separator")
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		if _, _, err := ParseKey("gateway://1"); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("rejects empty identifier", func(t *testing.T) {
		if _, _, err := ParseKey("device://"); err == nil {
			t.Error("expected error for empty identifier")
		}
	})
}

func TestNodeProperties(t *testing.T) {
	t.Run("second write overwrites the first", func(t *testing.T) {
		g := NewGraph()
		n := g.Ensure(KindDevice, "1234")

		n.SetAddress("10.0.0.5")
		n.SetAddress("10.0.0.6")

		v, ok := n.Property(PropertyAddress)
		if !ok {
			t.Fatal("expected address property to be set")
		}
		if v.Str != "10.0.0.6" {
			t.Errorf("expected latest value 10.0.0.6, got %s", v.Str)
		}
	})

	t.Run("vendor is stored as a reference", func(t *testing.T) {
		g := NewGraph()
		n := g.Ensure(KindDevice, "1234")
		n.SetVendor(999)

		v, ok := n.Property(PropertyVendorID)
		if !ok {
			t.Fatal("expected vendor-id property to be set")
		}
		if v.Type != ObjectRef {
			t.Errorf("expected ref object, got %s", v.Type)
		}
		if v.Str != "vendor://999" {
			t.Errorf("expected vendor://999, got %s", v.Str)
		}
	})

	t.Run("instance is stored as an integer", func(t *testing.T) {
		g := NewGraph()
		n := g.Ensure(KindDevice, "1234")
		n.SetInstance(1234)

		v, _ := n.Property(PropertyDeviceInstance)
		if v.Type != ObjectInteger || v.Int != 1234 {
			t.Errorf("expected integer 1234, got %+v", v)
		}
	})
}

func TestNodeRelations(t *testing.T) {
	t.Run("different targets are both retained", func(t *testing.T) {
		g := NewGraph()
		n := g.Ensure(KindRouter, "10.0.0.1")

		if err := n.Relate(RelationRouterToNetwork, "network://5"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := n.Relate(RelationRouterToNetwork, "network://6"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		targets := n.Relations(RelationRouterToNetwork)
		if len(targets) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(targets))
		}
		if targets[0] != "network://5" || targets[1] != "network://6" {
			t.Errorf("unexpected targets %v", targets)
		}
	})

	t.Run("duplicate target is idempotent", func(t *testing.T) {
		g := NewGraph()
		n := g.Ensure(KindDevice, "1")

		n.Relate(RelationDeviceOnSubnet, "subnet://10.0.0.0/24")
		n.Relate(RelationDeviceOnSubnet, "subnet://10.0.0.0/24")

		if len(n.Relations(RelationDeviceOnSubnet)) != 1 {
			t.Errorf("expected 1 target after duplicate add, got %d",
				len(n.Relations(RelationDeviceOnSubnet)))
		}
	})

	t.Run("capability table rejects inapplicable relations", func(t *testing.T) {
		g := NewGraph()
		subnet := g.Ensure(KindSubnet, "10.0.0.0/24")
		if err := subnet.Relate(RelationDeviceOnSubnet, "device://1"); err == nil {
			t.Error("expected error: subnets carry no outgoing relations")
		}

		device := g.Ensure(KindDevice, "1")
		if err := device.Relate(RelationBDTEntry, "bbmd://10.0.0.2"); err == nil {
			t.Error("expected error: bdt-entry applies to BBMD nodes only")
		}
	})

	t.Run("diff provenance is allowed on any kind", func(t *testing.T) {
		g := NewGraph()
		subnet := g.Ensure(KindSubnet, "10.0.0.0/24")
		if err := subnet.Relate(RelationDiffSource, "snapshot://a"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
