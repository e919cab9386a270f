// Package fixtures discovers test-data files and groups them into suites.
//
// A category root is scanned recursively; every file whose name matches the
// category's include pattern (and not its exclude pattern) becomes a Fixture
// identified by its slash separated path relative to the root:
//
//	fixtures, err := fixtures.Scan(fixtures.ScanOptions{
//	    Root:    "testData/diagnostics",
//	    Include: regexp.MustCompile(`^(.+)\.kts?$`),
//	    Exclude: regexp.MustCompile(`^(.+)\.fir\.kts?$`),
//	})
//
// BuildSuite partitions the fixtures into a tree of SuiteNodes, one per directory,
// so that coverage can be verified and reported per directory:
//
//	diagnostics (2 direct, 5 total)
//	├── 📄 a.kt TestA
//	└── 📂 errors (3 direct, 3 total)
//	    ├── 📄 anonympuseObjectInInvalidPosition.kt TestAnonympuseObjectInInvalidPosition
//	    └── ...
//
// Fixtures may carry directives in leading line comments, e.g. "// IGNORE_FIR" or
// "// LANGUAGE: +ContextReceivers", which configurations use to skip or vary runs.
package fixtures
