// =============================================================================
// pretix-ifirma - Main Entry Point
// =============================================================================
//
// USAGE:
//   pretix-ifirma convert    - Convert a pretix order export into invoices
//   pretix-ifirma upload     - Send the stored invoices to ifirma
//   pretix-ifirma validate   - Check configuration and invoices offline
//   pretix-ifirma version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Parsing, conversion, validation, storage and upload
//   - pkg/       : Logger and file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/pretix-ifirma/cmd"
)

func main() {
	cmd.Execute()
}
