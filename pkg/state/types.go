package state

import "path/filepath"

type Paths struct {
	DB          string
	Store       string
	State       string
	Audit       string
	Retention   string // lease files
	Attachments string // fs attachment backend
	Tmp         string
	Crash       string
}

func PathsFor(dbPath string) Paths {
	statePath := filepath.Join(dbPath, "state")
	return Paths{
		DB:    dbPath,
		Store: filepath.Join(dbPath, "store"),

		State:       statePath,
		Audit:       filepath.Join(statePath, "audit"),
		Retention:   filepath.Join(statePath, "retention"),
		Attachments: filepath.Join(statePath, "attachments"),
		Tmp:         filepath.Join(statePath, "tmp"),
		Crash:       filepath.Join(statePath, "crash"),
	}
}

func AttachmentsPath(dbPath string) string { return PathsFor(dbPath).Attachments }
func CrashPath(dbPath string) string       { return PathsFor(dbPath).Crash }
