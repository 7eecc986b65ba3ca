package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// hashVersion is baked into the fingerprint so a future canonical-form change
// cannot silently collide with historical hashes.
const hashVersion = "v1"

// ComputeHash returns the content fingerprint of the definition: a SHA-256
// over a canonical serialization of every content field. The receiver is
// normalized first, so the result is independent of list order and
// whitespace. Identity, activity, and timestamps are not content and do not
// participate.
func (t *TerritoryDefinition) ComputeHash() string {
	n := t.Clone()
	n.Normalize()

	var b strings.Builder
	writeField := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('|')
	}

	writeField("demarc", hashVersion)
	writeField("name", strings.ToLower(n.Name))
	writeField("country", n.CountryCode)
	writeField("states", strings.Join(n.States, ","))
	writeField("xstates", strings.Join(n.ExcludedStates, ","))
	writeField("munis", strings.Join(n.Municipalities, ","))
	writeField("xmunis", strings.Join(n.ExcludedMunicipalities, ","))
	writeField("micro", strings.Join(n.MicroRegions, ","))
	writeField("metro", strings.Join(n.MetroRegions, ","))
	writeField("urban", strings.Join(n.UrbanAgglomerations, ","))

	zips := make([]string, 0, len(n.ZipRanges))
	for _, z := range n.ZipRanges {
		zips = append(zips, z.Start+"-"+z.End)
	}
	writeField("zips", strings.Join(zips, ","))
	writeField("xzips", strings.Join(n.ZipExclusions, ","))
	writeField("zone", n.CustomZoneRef)
	writeField("excl", string(n.ExclusivityType))
	writeField("quota", strconv.Itoa(n.MaxPartnerQuota))
	writeField("overlap", strconv.FormatBool(n.OverlapAllowed))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
