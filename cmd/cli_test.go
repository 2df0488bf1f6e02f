package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestRecordAddThenList(t *testing.T) {
	home := t.TempDir()

	for i := 0; i < 2; i++ {
		stdout, _, err := executeCLI(t, home, "record", "add")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Added record ")
	}

	stdout, _, err := executeCLI(t, home, "record", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "INDEX")
	assert.Contains(t, stdout, "\n0 ")
	assert.Contains(t, stdout, "\n1 ")

	_, err = os.Stat(filepath.Join(home, ".defifolio", "records.toml"))
	assert.NoError(t, err)
}

func TestRecordListEmpty(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "record", "list")
	require.NoError(t, err)
	assert.Equal(t, "No records.\n", stdout)
}

func TestRecordDeleteByIndexKeepsOrder(t *testing.T) {
	home := t.TempDir()
	for i := 0; i < 3; i++ {
		_, _, err := executeCLI(t, home, "record", "add")
		require.NoError(t, err)
	}
	before := listRecordsJSON(t, home)
	require.Len(t, before, 3)

	stdout, _, err := executeCLI(t, home, "record", "delete", "--index", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted record "+before[1].ID)

	after := listRecordsJSON(t, home)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[2].ID, after[1].ID)
	assert.Equal(t, 1, after[1].Index)
}

func TestRecordDeleteOutOfRangeDeletesNothing(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "record", "add")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "record", "delete", "--index", "0", "--index", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record index out of range")

	assert.Len(t, listRecordsJSON(t, home), 1)
}

func TestRecordDeleteByID(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "record", "add")
	require.NoError(t, err)
	records := listRecordsJSON(t, home)
	require.Len(t, records, 1)

	_, _, err = executeCLI(t, home, "record", "delete", strings.ToUpper(records[0].ID))
	require.NoError(t, err)
	assert.Empty(t, listRecordsJSON(t, home))

	_, _, err = executeCLI(t, home, "record", "delete", records[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
}

func TestRecordDeleteValidatesArguments(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "record", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --index or at least one record id")

	_, _, err = executeCLI(t, home, "record", "delete", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse record id")
}

func TestRecordsInSQLiteBackend(t *testing.T) {
	home := t.TempDir()
	t.Setenv("DEFIFOLIO_STORE_BACKEND", "sqlite")

	_, _, err := executeCLI(t, home, "record", "add")
	require.NoError(t, err)

	assert.Len(t, listRecordsJSON(t, home), 1)
	_, err = os.Stat(filepath.Join(home, ".defifolio", "records.db"))
	assert.NoError(t, err)
}

func TestConnectOptimisticReportsConnected(t *testing.T) {
	t.Setenv("DEFIFOLIO_WALLET_ADAPTER", "simulated")

	stdout, _, err := executeCLI(t, t.TempDir(), "connect", "--policy", "optimistic")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pairing URI: wc:simulated-0001@1?bridge=https%3A%2F%2Fwalletconnect.org")
	assert.Contains(t, stdout, "Connected\n")
}

func TestConnectConfirmedWaitsForApproval(t *testing.T) {
	t.Setenv("DEFIFOLIO_WALLET_ADAPTER", "simulated")
	t.Setenv("DEFIFOLIO_WALLET_AUTO_APPROVE", "10ms")

	stdout, _, err := executeCLI(t, t.TempDir(), "connect")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Connected to wallet: Simulated Wallet (simulate)")
}

func TestConnectConfirmedTimesOut(t *testing.T) {
	t.Setenv("DEFIFOLIO_WALLET_ADAPTER", "simulated")

	_, _, err := executeCLI(t, t.TempDir(), "connect", "--timeout", "50ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out waiting for wallet approval")
}

func TestConnectNoWaitLeavesAttemptPending(t *testing.T) {
	t.Setenv("DEFIFOLIO_WALLET_ADAPTER", "simulated")

	stdout, _, err := executeCLI(t, t.TempDir(), "connect", "--no-wait")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Connecting…")
}

func TestConnectRejectsMalformedEndpoint(t *testing.T) {
	t.Setenv("DEFIFOLIO_WALLET_ADAPTER", "simulated")

	_, _, err := executeCLI(t, t.TempDir(), "connect", "--endpoint", "ftp://walletconnect.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed wallet endpoint")
}

func TestConnectLoopbackPrintsApprovalURL(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "connect", "--no-wait")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pairing URI: wc:")
	assert.Contains(t, stdout, "callback=http%3A%2F%2F127.0.0.1%3A")
	assert.Contains(t, stdout, "Approve at: http://127.0.0.1:")
}

func TestConnectRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("DEFIFOLIO_WALLET_ADAPTER", "simulated")

	_, _, err := executeCLI(t, t.TempDir(), "connect", "--policy", "eventual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported connect policy")
}

func TestWelcomeOnceRendersSnapshot(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "record", "add")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "welcome", "--once")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Welcome to DeFifolio")
	assert.Contains(t, stdout, "Connect Wallet")
	assert.Contains(t, stdout, "Custom Price Alerts")
	assert.Contains(t, stdout, "Get Started")
	assert.Contains(t, stdout, "Records (1)")
}

func TestWalletProjectLifecycle(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PASSWORD_STORE_DIR", filepath.Join(home, ".password-store"))

	stdout, _, err := executeCLI(t, home, "wallet", "project", "show")
	require.NoError(t, err)
	assert.Equal(t, "not set\n", stdout)

	_, _, err = executeCLI(t, home, "wallet", "project", "set", "--value", "wc-project-42")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "wallet", "project", "show")
	require.NoError(t, err)
	assert.Equal(t, "wc-p*********\n", stdout)

	_, _, err = executeCLI(t, home, "wallet", "project", "remove")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "wallet", "project", "show")
	require.NoError(t, err)
	assert.Equal(t, "not set\n", stdout)
}

func TestWalletProjectSetRequiresValue(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "wallet", "project", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"value\" not set")
}

func TestInvalidConfigSurfacesOnRoot(t *testing.T) {
	t.Setenv("DEFIFOLIO_STORE_BACKEND", "redis")

	_, _, err := executeCLI(t, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store backend")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func listRecordsJSON(t *testing.T, home string) []recordJSON {
	t.Helper()

	stdout, _, err := executeCLI(t, home, "record", "list", "--json")
	require.NoError(t, err)

	var records []recordJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	return records
}

func TestRecordListYAML(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "record", "add")
	require.NoError(t, err)
	records := listRecordsJSON(t, home)
	require.Len(t, records, 1)

	stdout, _, err := executeCLI(t, home, "record", "list", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "- index: 0\n")
	assert.Contains(t, stdout, "  id: "+records[0].ID+"\n")

	_, _, err = executeCLI(t, home, "record", "list", "--yaml", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestRecordDeleteByIndexAndSameIDSucceeds(t *testing.T) {
	home := t.TempDir()
	for i := 0; i < 2; i++ {
		_, _, err := executeCLI(t, home, "record", "add")
		require.NoError(t, err)
	}
	records := listRecordsJSON(t, home)
	require.Len(t, records, 2)

	stdout, _, err := executeCLI(t, home, "record", "delete", "--index", "0", records[0].ID, records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "Deleted record "+records[0].ID))
	assert.Contains(t, stdout, "Deleted record "+records[1].ID)
	assert.Empty(t, listRecordsJSON(t, home))
}
