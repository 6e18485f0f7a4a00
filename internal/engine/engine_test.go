package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bianoble/vault-scm/internal/vault"
)

// fakeClient is a test client that returns predefined results and records calls.
type fakeClient struct {
	props    vault.FolderState
	propsErr error
	getErr   error
	count    int
	countErr error
	history  string
	histErr  error

	propsCalls int
	gets       []string
	counts     [][2]time.Time
	histories  [][2]time.Time
}

func (f *fakeClient) FolderProperties(ctx context.Context) (vault.FolderState, error) {
	f.propsCalls++
	return f.props, f.propsErr
}

func (f *fakeClient) GetVersion(ctx context.Context, version, workspace string) error {
	f.gets = append(f.gets, version)
	return f.getErr
}

func (f *fakeClient) CountChanges(ctx context.Context, begin, end time.Time) (int, error) {
	f.counts = append(f.counts, [2]time.Time{begin, end})
	return f.count, f.countErr
}

func (f *fakeClient) CaptureHistory(ctx context.Context, begin, end time.Time, w io.Writer) error {
	f.histories = append(f.histories, [2]time.Time{begin, end})
	if f.histErr != nil {
		return f.histErr
	}
	_, err := io.Copy(w, strings.NewReader(f.history))
	return err
}

var errExit = &vault.CommandError{Operation: "Checkout", ExitCode: 1}

var errNotFound = errors.New("vault client not found")

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const twoTransactions = `<vault><history>
<item txid="1" user="A" date="2024-05-01T10:00:00" comment="first" name="$/proj/a.txt" version="11" typeName="CheckIn" />
<item txid="1" user="A" date="2024-05-01T10:00:00" comment="first" name="$/proj/b.txt" version="11" typeName="Created" />
<item txid="2" user="B" date="2024-05-02T10:00:00" comment="second" name="$/proj/c.txt" version="12" typeName="CheckIn" />
</history></vault>`
