package drm_test

import (
	"testing"

	"github.com/NeowayLabs/hdi/drm"
)

func TestDRIOpen(t *testing.T) {
	requireCard(t)
	file, err := drm.OpenCard(0)
	if err != nil {
		t.Fatal(err)
	}
	file.Close()
}

func TestOpenMissingNode(t *testing.T) {
	if _, err := drm.Open("/dev/dri/card-does-not-exist"); err == nil {
		t.Fatal("expected error opening a missing node")
	}
}

func TestAvailableCard(t *testing.T) {
	requireKnownCard(t)
	v, err := drm.Available()
	if err != nil {
		t.Fatal(err)
	}
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		t.Fatalf("failed to get driver version: %#v", v)
	}
	if v.Major != cardInfo.version.Major && v.Minor != cardInfo.version.Minor &&
		v.Patch != cardInfo.version.Patch {
		t.Logf("Unknow driver version: %d.%d.%d", v.Major, v.Minor, v.Patch)
	}

	t.Logf("Driver name: %s", v.Name)
	t.Logf("Driver version: %d.%d.%d", v.Major, v.Minor, v.Patch)
	t.Logf("Driver date: %s", v.Date)
	t.Logf("Driver description: %s", v.Desc)
}

func TestUniversalPlanesClientCap(t *testing.T) {
	requireCard(t)
	file, err := drm.OpenCard(0)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := drm.SetClientCap(file, drm.ClientCapUniversalPlanes, 1); err != nil {
		t.Errorf("universal planes: %v", err)
	}
}
