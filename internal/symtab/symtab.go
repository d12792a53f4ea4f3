// Package symtab is the external symbol table collaborator: it
// enumerates the dynamic symbols of the C runtime library so
// internal/symbol's Classifier can tell a genuinely external call from
// an unresolved name. `nm -D <libc.so>`'s third whitespace-separated
// field is the symbol name, read via the same os/exec pattern
// internal/frontend uses.
package symtab

import (
	"bufio"
	"os/exec"
	"strings"

	"github.com/bctak/delphino/internal/cgerr"
	"github.com/bctak/delphino/internal/symbol"
)

// DefaultLibc is the conventional glibc path on a Debian/Ubuntu x86_64
// system; callers on other distros/architectures should override it via
// config.
const DefaultLibc = "/lib/x86_64-linux-gnu/libc.so.6"

// LoadNM runs `nm -D libcPath` and returns every dynamic symbol name
// found, as a symbol.Table.
func LoadNM(libcPath string) (symbol.StaticTable, error) {
	if libcPath == "" {
		libcPath = DefaultLibc
	}
	cmd := exec.Command("nm", "-D", libcPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, &cgerr.InputError{Path: libcPath, Err: err}
	}
	return parseNM(string(out)), nil
}

// parseNM extracts the symbol name (third field) from each line of
// `nm -D` output, matching the original's `parts[2]` indexing (and its
// "include all symbols without filtering by type" comment: every line
// with at least 3 fields contributes, regardless of the symbol-type
// letter in the second field).
func parseNM(output string) symbol.StaticTable {
	table := make(symbol.StaticTable)
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 3 {
			table[fields[2]] = struct{}{}
		}
	}
	return table
}

// Bundled is a small fixed set of common libc symbol names used as a
// fallback for hermetic tests and environments without a usable
// /lib/*/libc.so.6 (e.g. non-glibc or non-Linux hosts running the
// test suite).
var Bundled = symbol.NewStaticTable(
	"printf", "fprintf", "sprintf", "snprintf", "puts", "putchar",
	"malloc", "calloc", "realloc", "free",
	"memcpy", "memmove", "memset", "memcmp",
	"strlen", "strcpy", "strncpy", "strcmp", "strncmp", "strcat", "strncat",
	"strchr", "strstr", "strtok", "strdup",
	"open", "close", "read", "write", "lseek", "fopen", "fclose", "fread", "fwrite",
	"exit", "abort", "atexit",
	"pthread_create", "pthread_join", "pthread_mutex_lock", "pthread_mutex_unlock",
	"clone", "fork", "execve", "wait", "waitpid",
	"socket", "bind", "listen", "accept", "connect", "send", "recv",
	"time", "sleep", "usleep", "nanosleep",
	"rand", "srand",
)
