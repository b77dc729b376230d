// cmd/tools/profile-lint/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"school-matcher/internal/common/validation"
	"school-matcher/internal/matching/querybuilder"
	"school-matcher/internal/models"
)

func main() {
	limit := flag.Int("limit", 20, "Result limit the engine would apply")
	schema := flag.String("schema", "education_data", "Warehouse schema the query would target")
	showSQL := flag.Bool("sql", true, "Print the statement the engine would execute")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading profile file: %v\n", err)
		os.Exit(1)
	}

	result := validation.ValidateProfileJSON(raw)
	if !result.Valid {
		fmt.Printf("Profile %s is invalid:\n", path)
		for _, msg := range result.GetErrorMessages() {
			fmt.Printf("  - %s\n", msg)
		}
		os.Exit(1)
	}

	var profile models.StudentProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		fmt.Printf("Profile does not match the expected shape: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Profile %s is valid.\n\n", path)
	fmt.Println("Normalized profile:")
	fmt.Printf("  school level: %s\n", profile.SchoolLevel.String())
	if city := profile.HomeCity(); city != "" {
		fmt.Printf("  home city:    %s\n", city)
	} else {
		fmt.Printf("  home city:    (none)\n")
	}
	fmt.Printf("  needs:        %s\n", activeKeys(profile.Needs))
	fmt.Printf("  interests:    %s\n", activeKeys(profile.Interests))

	if *showSQL {
		spec := querybuilder.New(*schema).Build(&profile, *limit)
		fmt.Printf("\nQuery the engine would execute (limit %d):\n\n%s\n", spec.Limit, spec.SQL)
		if len(spec.Args) > 0 {
			fmt.Println("Bound arguments:")
			for i, arg := range spec.Args {
				fmt.Printf("  $%d = %v\n", i+1, arg)
			}
		}
	}
}

func activeKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "(none)"
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func usage() {
	fmt.Printf("%s\n", `
Usage: profile-lint [flags] <profile.json>

Validates a student profile file against the matching schema and prints
the warehouse query the engine would run for it.

Flags:
  -limit n    Result limit the engine would apply (default 20)
  -schema s   Warehouse schema the query would target (default education_data)
  -sql        Print the statement the engine would execute (default true)

Examples:
  profile-lint profile.json
  profile-lint -limit 10 profile.json
`)
}
