package locations

import "testing"

func TestCatalogHas500UniqueNames(t *testing.T) {
	t.Parallel()

	if len(Catalog) != 500 {
		t.Fatalf("len(Catalog) = %d, want 500", len(Catalog))
	}

	seen := make(map[string]bool, len(Catalog))
	for _, loc := range Catalog {
		if seen[loc.Name] {
			t.Fatalf("duplicate location name %q", loc.Name)
		}
		seen[loc.Name] = true

		if loc.Lat < -90 || loc.Lat > 90 {
			t.Fatalf("%s: lat %f out of range", loc.Name, loc.Lat)
		}
		if loc.Lon < -180 || loc.Lon > 180 {
			t.Fatalf("%s: lon %f out of range", loc.Name, loc.Lon)
		}
	}
}

func TestWrapLonStaysInRange(t *testing.T) {
	t.Parallel()

	cases := []float64{200, -200, 180, -180, 0, 359.5}
	for _, lon := range cases {
		got := wrapLon(lon)
		if got < -180 || got > 180 {
			t.Fatalf("wrapLon(%f) = %f, out of [-180, 180]", lon, got)
		}
	}
}

func TestClampLatStaysInRange(t *testing.T) {
	t.Parallel()

	if got := clampLat(95); got != 89.9 {
		t.Fatalf("clampLat(95) = %f, want 89.9", got)
	}
	if got := clampLat(-95); got != -89.9 {
		t.Fatalf("clampLat(-95) = %f, want -89.9", got)
	}
}
