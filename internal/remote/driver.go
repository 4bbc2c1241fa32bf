package remote

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// DriverCatalog lists the database drivers installed on the host.
type DriverCatalog interface {
	List() ([]string, error)
}

// DriverSelector picks the driver to use from a catalog listing.
type DriverSelector interface {
	Select(drivers []string) (string, bool)
}

// StaticCatalog is a fixed driver list, typically taken from configuration.
type StaticCatalog []string

func (c StaticCatalog) List() ([]string, error) {
	return append([]string(nil), c...), nil
}

// OdbcinstCatalog reads the unixODBC driver registry. Every section of the
// file except the [ODBC] options section names an installed driver. A
// missing file means no drivers are installed.
type OdbcinstCatalog struct {
	Path string
}

func (c OdbcinstCatalog) List() ([]string, error) {
	if _, err := os.Stat(c.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	f, err := ini.Load(c.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.Path, err)
	}

	var drivers []string
	for _, section := range f.Sections() {
		switch name := section.Name(); name {
		case ini.DefaultSection, "ODBC", "ODBC Drivers":
			continue
		default:
			drivers = append(drivers, name)
		}
	}
	return drivers, nil
}

// SubstringSelector returns the first driver whose name contains Marker.
// Matching is case-sensitive.
type SubstringSelector struct {
	Marker string
}

func (s SubstringSelector) Select(drivers []string) (string, bool) {
	for _, d := range drivers {
		if strings.Contains(d, s.Marker) {
			return d, true
		}
	}
	return "", false
}

// ResolveDriver lists the catalog and applies the selector. It fails with
// ErrDriverNotFound when nothing matches or the catalog cannot be read.
func ResolveDriver(catalog DriverCatalog, selector DriverSelector) (string, error) {
	drivers, err := catalog.List()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDriverNotFound, err)
	}

	driver, ok := selector.Select(drivers)
	if !ok {
		return "", ErrDriverNotFound
	}
	return driver, nil
}
