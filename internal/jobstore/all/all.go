// Package all links every job store backend into the binary. Blank-import it
// from main packages; config selects which backend actually runs.
package all

import (
	_ "xmltab/internal/jobstore/memory"
	_ "xmltab/internal/jobstore/mssql"
	_ "xmltab/internal/jobstore/postgres"
	_ "xmltab/internal/jobstore/sqlite"
)
