package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ContentHash fingerprints the business content of a record so identical
// resubmissions can be spotted during audits.
func ContentHash(r MetricRecord) string {
	var b strings.Builder
	b.WriteString(r.CompanyID.String())
	b.WriteByte('|')
	b.WriteString(r.Category)
	b.WriteByte('|')
	b.WriteString(r.MetricName)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.Value, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(r.Unit)
	b.WriteByte('|')
	if r.Target != nil {
		b.WriteString(strconv.FormatFloat(*r.Target, 'g', -1, 64))
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(r.ReportingYear))
	b.WriteByte('|')
	b.WriteString(r.Source)

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
