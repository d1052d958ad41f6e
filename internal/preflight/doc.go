// Package preflight provides readiness checks for the repository endpoint
// and filesystem paths that Bindery depends on.
//
// These checks run in two contexts:
//   - The batch service calls RunAll before a submission pass. If any check
//     fails, the pass is refused rather than failing packages one by one.
//   - The CLI "bindery preflight" command displays each check result.
package preflight
