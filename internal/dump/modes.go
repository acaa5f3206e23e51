package dump

import (
	"fmt"
	"io"

	"mddump/minidump"
)

// PrintModulesDebugInfo writes one semicolon-joined line per loaded
// module: on-disk path, code identifier, debug-info path, debug
// identifier. Callers that need every module listed open the handle with
// an unlimited module cap; nothing here truncates the list.
func PrintModulesDebugInfo(md *minidump.Minidump, w io.Writer) error {
	modules, err := md.GetModuleList()
	if err != nil {
		return err
	}
	for _, m := range modules.Modules {
		fmt.Fprintf(w, "%s;%s;%s;%s\n",
			m.CodeFile(), m.CodeIdentifier(), m.DebugFile(), m.DebugIdentifier())
	}
	return nil
}

// PrintPlatformInfo writes one semicolon-joined line: OS name, OS version
// as "major.minor.build", and CPU name. Zeroed version fields render as
// "0.0.0"; unrecognized OS or CPU identifiers render as empty fields.
func PrintPlatformInfo(md *minidump.Minidump, w io.Writer) error {
	info, err := md.GetSystemInfo()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s;%s;%s\n", info.OS(), info.OSVersion(), info.CPU())
	return nil
}
