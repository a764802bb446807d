// Package dbcapabilities describes the database engines the anchor service can
// reach. Every component that needs to make a decision based on an engine
// (default port, paradigm, whether statements may be scripts) reads it from
// here instead of switching on type strings.
//
// Minimal usage example:
//
//	import "github.com/redbco/redb-anchor/pkg/dbcapabilities"
//
//	func defaultPort(kind string) int {
//	    c, ok := dbcapabilities.GetByName(kind)
//	    if !ok {
//	        return 0
//	    }
//	    return c.DefaultPort
//	}
//
// Catalog labels such as "relational-A" or "key-value" are registered as
// aliases, so ParseType accepts them alongside canonical ids and URL schemes.
package dbcapabilities
