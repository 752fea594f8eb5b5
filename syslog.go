// FILE: lixenwraith/sinklog/syslog.go
package sinklog

import (
	"fmt"
	"sort"
	"strings"
)

// syslogFacilities maps facility names to their RFC 5424 codes
var syslogFacilities = map[string]int{
	"kern":     0,
	"user":     1,
	"mail":     2,
	"daemon":   3,
	"auth":     4,
	"syslog":   5,
	"lpr":      6,
	"news":     7,
	"uucp":     8,
	"cron":     9,
	"authpriv": 10,
	"ftp":      11,
	"local0":   16,
	"local1":   17,
	"local2":   18,
	"local3":   19,
	"local4":   20,
	"local5":   21,
	"local6":   22,
	"local7":   23,
}

// syslogSeverity maps a record severity to an RFC 5424 severity code.
// Trace and debug share LOG_DEBUG; levels between the named ones round down.
func syslogSeverity(sev Severity) int {
	switch {
	case sev >= LevelCritical:
		return 2 // crit
	case sev >= LevelError:
		return 3 // err
	case sev >= LevelWarn:
		return 4 // warning
	case sev >= LevelInfo:
		return 6 // info
	default:
		return 7 // debug
	}
}

// parseFacility resolves a facility name
func parseFacility(name string) (int, error) {
	code, ok := syslogFacilities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(syslogFacilities))
		for n := range syslogFacilities {
			names = append(names, n)
		}
		sort.Strings(names)
		return 0, fmt.Errorf("unknown facility: '%s' (use %s)", name, strings.Join(names, ", "))
	}
	return code, nil
}
