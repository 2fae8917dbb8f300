// Package model holds the plain data types shared by every subsystem of
// the NTFS index core: the FRN-keyed node graph, the flattened search
// surface, and the row shapes returned across the procedural ABI.
package model

// FRN is a volume-local File Reference Number. It is stable across
// renames and, for V3 USN records, is the low 64 bits of the
// filesystem's 128-bit identifier (see the usn package).
type FRN uint64

// Node is one MFT entry as tracked by the index. The root directory is
// stored with ParentFRN equal to its own FRN and an empty Name.
type Node struct {
	ParentFRN   FRN
	Name        string
	IsDirectory bool
}

// IndexedFile is one row of the flat search surface.
type IndexedFile struct {
	FRN            FRN
	Name           string
	Path           string
	ExtensionLower string
	IsDirectory    bool
}

// JournalPosition is the USN journal hand-off point captured at the end
// of MFT enumeration and consumed as the live watcher's start position.
type JournalPosition struct {
	JournalID uint64
	NextUSN   int64
}

// LiveUpdatesSupported reports whether this position is usable to start
// a live watcher, per spec: JournalID == 0 or NextUSN <= 0 means live
// updates are unsupported.
func (p JournalPosition) LiveUpdatesSupported() bool {
	return p.JournalID != 0 && p.NextUSN > 0
}

// ScanSnapshot is the output of one MFT enumeration pass (C4).
type ScanSnapshot struct {
	Files                 []IndexedFile
	Nodes                 map[FRN]Node
	RootFRN               FRN
	RootPath              string
	Journal               JournalPosition
	LiveUpdatesSupported  bool
}

// SearchRow is one result row of a search query (C6).
type SearchRow struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Extension    string `json:"extension"`
	Size         uint64 `json:"size"`
	CreatedUnix  int64  `json:"createdUnix"`
	ModifiedUnix int64  `json:"modifiedUnix"`
	IsDirectory  bool   `json:"isDirectory"`
}

// DuplicateFile is one member of a duplicate group (C7).
type DuplicateFile struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         uint64 `json:"size"`
	CreatedUnix  int64  `json:"createdUnix"`
	ModifiedUnix int64  `json:"modifiedUnix"`
}

// DuplicateGroup is one cluster of byte-identical files (C7).
type DuplicateGroup struct {
	GroupID    string          `json:"groupId"`
	Size       uint64          `json:"size"`
	TotalBytes uint64          `json:"totalBytes"`
	FileCount  int             `json:"fileCount"`
	Files      []DuplicateFile `json:"files"`
}

// DriveType classifies a logical drive as reported by list_drives_json.
type DriveType string

const (
	DriveTypeFixed     DriveType = "fixed"
	DriveTypeRemovable DriveType = "removable"
	DriveTypeNetwork   DriveType = "network"
	DriveTypeCDROM     DriveType = "cdrom"
	DriveTypeRAMDisk   DriveType = "ramdisk"
	DriveTypeNoRoot    DriveType = "no-root"
	DriveTypeUnknown   DriveType = "unknown"
)

// DriveInfo is one row of list_drives_json.
type DriveInfo struct {
	Letter        string    `json:"letter"`
	Path          string    `json:"path"`
	Filesystem    string    `json:"filesystem"`
	DriveType     DriveType `json:"driveType"`
	IsNTFS        bool      `json:"isNtfs"`
	CanOpenVolume bool      `json:"canOpenVolume"`
}

// DuplicateScanStatus is the shape of duplicate_scan_status_json.
type DuplicateScanStatus struct {
	Running          bool    `json:"running"`
	CancelRequested  bool    `json:"cancelRequested"`
	ScannedFiles     uint64  `json:"scannedFiles"`
	TotalFiles       uint64  `json:"totalFiles"`
	GroupsFound      uint64  `json:"groupsFound"`
	ProgressPercent  float64 `json:"progressPercent"`
}
