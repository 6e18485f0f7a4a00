// Package vault drives the SourceGear Vault command-line client.
package vault

import (
	"strings"
	"time"

	"github.com/bianoble/vault-scm/internal/changelog"
	"github.com/bianoble/vault-scm/internal/config"
)

// SubCommand is a client sub-command.
type SubCommand string

const (
	GetVersion           SubCommand = "GETVERSION"
	ListObjectProperties SubCommand = "LISTOBJECTPROPERTIES"
	VersionHistory       SubCommand = "VERSIONHISTORY"
	History              SubCommand = "HISTORY"
)

// Command is an argument vector whose first element is the client executable.
type Command struct {
	Args   []string
	masked map[int]bool
}

func (c *Command) add(args ...string) {
	c.Args = append(c.Args, args...)
}

func (c *Command) addMasked(arg string) {
	if c.masked == nil {
		c.masked = make(map[int]bool)
	}
	c.masked[len(c.Args)] = true
	c.Args = append(c.Args, arg)
}

// String renders the command line for logs with secret arguments masked.
func (c Command) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		switch {
		case c.masked[i]:
			parts[i] = "****"
		case a == "" || strings.ContainsAny(a, " \t\""):
			parts[i] = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		default:
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}

// Builder assembles client command lines from connection settings.
type Builder struct {
	Executable string
	Conn       config.ConnectionConfig
}

// base starts a command with the connection flags shared by every sub-command.
// Credentials and host are omitted when empty so stored logins keep working.
func (b Builder) base(sub SubCommand) Command {
	var c Command
	c.add(b.Executable, string(sub))

	if b.Conn.Server != "" {
		c.add("-host", b.Conn.Server)
	}
	if b.Conn.User != "" {
		c.add("-user", b.Conn.User)
	}
	if !b.Conn.Password.IsEmpty() {
		c.add("-password")
		c.addMasked(b.Conn.Password.Reveal())
	}
	if b.Conn.Repository != "" {
		c.add("-repository", b.Conn.Repository)
	}
	if b.Conn.SSL {
		c.add("-ssl")
	}
	return c
}

// GetVersion builds the checkout of a folder version into workspace.
func (b Builder) GetVersion(version, workspace string) Command {
	c := b.base(GetVersion)

	if b.Conn.Verbose {
		c.add("-verbose")
	}
	if b.Conn.MakeWritable {
		c.add("-makewritable")
	}

	merge := b.Conn.Merge
	if merge == "" {
		merge = config.MergeOverwrite
	}
	fileTime := b.Conn.FileTime
	if fileTime == "" {
		fileTime = config.FileTimeModification
	}
	c.add("-merge", merge)
	c.add("-setfiletime", fileTime)

	if b.Conn.UseWorkingFolder {
		c.add("-useworkingfolder")
	}

	c.add(version, b.Conn.Path, workspace)
	return c
}

// ListObjectProperties builds the properties query for the repository path.
func (b Builder) ListObjectProperties() Command {
	c := b.base(ListObjectProperties)
	c.add(b.Conn.Path)
	return c
}

// VersionHistory builds the folder version history query between begin and end.
func (b Builder) VersionHistory(begin, end time.Time) Command {
	return b.dated(VersionHistory, begin, end)
}

// History builds the item history query between begin and end.
func (b Builder) History(begin, end time.Time) Command {
	return b.dated(History, begin, end)
}

func (b Builder) dated(sub SubCommand, begin, end time.Time) Command {
	c := b.base(sub)
	c.add("-enddate", changelog.FormatDate(end))
	c.add("-begindate", changelog.FormatDate(begin))
	c.add(b.Conn.Path)
	return c
}
