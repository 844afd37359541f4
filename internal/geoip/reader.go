package geoip

import (
	"fmt"
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

// Package geoip enriches IP-block audit notes with the country behind an
// address. Lookups are best effort: without a database file the notes simply
// omit geography.

var (
	readerMu sync.RWMutex
	reader   *geoip2.Reader
)

// Open loads a GeoLite2 country database from disk. Safe to call again to
// swap in an updated file.
func Open(path string) error {
	db, err := geoip2.Open(path)
	if err != nil {
		return fmt.Errorf("geoip: open database %q: %w", path, err)
	}

	readerMu.Lock()
	if reader != nil {
		if closeErr := reader.Close(); closeErr != nil {
			log.Warn("Failed to close previous GeoIP database", "error", closeErr)
		}
	}
	reader = db
	readerMu.Unlock()
	return nil
}

// CountryCode returns the ISO country code for an address, or "" when the
// database is unavailable or the address is unknown.
func CountryCode(ipAddress string) string {
	parsed := net.ParseIP(ipAddress)
	if parsed == nil {
		return ""
	}

	readerMu.RLock()
	defer readerMu.RUnlock()
	if reader == nil {
		return ""
	}

	record, err := reader.Country(parsed)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

func Close() error {
	readerMu.Lock()
	defer readerMu.Unlock()

	if reader == nil {
		return nil
	}
	err := reader.Close()
	reader = nil
	return err
}
