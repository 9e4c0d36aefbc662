package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
	"github.com/warp/labor-engine/timecard/store"
)

var epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T) *policy.Registry {
	reg, err := policy.NewRegistry(policy.StandardPolicies(epoch)...)
	require.NoError(t, err)
	return reg
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestPolicy_Validate_RulesMustMatchType(t *testing.T) {
	rules := policy.Defaults().Break
	p := policy.Policy{Type: policy.TypeOvertime, Break: &rules}

	err := p.Validate()

	assert.ErrorIs(t, err, policy.ErrInvalidPolicy)
}

func TestPolicy_Validate_RejectsSecondRuleSet(t *testing.T) {
	p := policy.FederalOvertimePolicy(epoch)
	rules := policy.Defaults().Rest
	p.Rest = &rules

	assert.ErrorIs(t, p.Validate(), policy.ErrInvalidPolicy)
}

func TestPolicy_Validate_DoubleTimeBelowDaily(t *testing.T) {
	p := policy.CaliforniaOvertimePolicy(epoch)
	p.Overtime.DoubleTimeThreshold = decimal.NewNullDecimal(decimal.NewFromInt(6))

	assert.ErrorIs(t, p.Validate(), policy.ErrInvalidPolicy)
}

func TestPolicy_Validate_BadJurisdiction(t *testing.T) {
	p := policy.FederalOvertimePolicy(epoch)
	p.Jurisdiction = "California"

	assert.ErrorIs(t, p.Validate(), policy.ErrInvalidPolicy)
}

func TestStandardPolicies_AllValid(t *testing.T) {
	for _, p := range policy.StandardPolicies(epoch) {
		assert.NoError(t, p.Validate(), p.ID)
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_Resolve_StateOverridesFederal(t *testing.T) {
	// GIVEN: Federal and California overtime policies
	// WHEN: Resolving for CA
	// THEN: Daily thresholds come from CA, breaks from the federal baseline

	reg := newRegistry(t)

	rs := reg.Resolve("ca", epoch.AddDate(1, 0, 0))

	assert.Equal(t, "CA", rs.Jurisdiction)
	require.True(t, rs.Overtime.HasDailyOvertime())
	assert.True(t, rs.Overtime.DailyThreshold.Decimal.Equal(decimal.NewFromInt(8)))
	assert.True(t, rs.Overtime.DoubleTimeThreshold.Decimal.Equal(decimal.NewFromInt(12)))
	assert.True(t, rs.Overtime.SeventhDayRule)
	assert.Equal(t, "ca-overtime-v1", rs.Sources[policy.TypeOvertime])
	assert.Equal(t, "federal-break-v1", rs.Sources[policy.TypeBreak])
}

func TestRegistry_Resolve_UnknownStateFallsBackToFederal(t *testing.T) {
	reg := newRegistry(t)

	rs := reg.Resolve("TX", epoch.AddDate(1, 0, 0))

	assert.False(t, rs.Overtime.HasDailyOvertime())
	assert.True(t, rs.Overtime.WeeklyThreshold.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "federal-overtime-v1", rs.Sources[policy.TypeOvertime])
}

func TestRegistry_Resolve_BeforeAnyPolicyUsesDefaults(t *testing.T) {
	reg := newRegistry(t)

	rs := reg.Resolve("CA", epoch.AddDate(-1, 0, 0))

	assert.False(t, rs.Overtime.HasDailyOvertime())
	assert.Empty(t, rs.Sources)
	assert.Equal(t, 30, rs.Break.MealBreakMinMinutes)
}

func TestRegistry_Resolve_EffectiveAtShiftTime(t *testing.T) {
	// GIVEN: CA v1 (8h daily) and a later v2 raising the threshold to 9h
	// WHEN: Resolving before and after v2 takes effect
	// THEN: Each instant sees the version in force then

	reg := newRegistry(t)
	v2 := policy.CaliforniaOvertimePolicy(epoch.AddDate(2, 0, 0))
	v2.ID = "ca-overtime-v2"
	v2.Version = 2
	v2.Overtime.DailyThreshold = decimal.NewNullDecimal(decimal.NewFromInt(9))
	_, err := reg.Add(v2)
	require.NoError(t, err)

	before := reg.Resolve("CA", epoch.AddDate(1, 0, 0))
	after := reg.Resolve("CA", epoch.AddDate(3, 0, 0))

	assert.True(t, before.Overtime.DailyThreshold.Decimal.Equal(decimal.NewFromInt(8)))
	assert.True(t, after.Overtime.DailyThreshold.Decimal.Equal(decimal.NewFromInt(9)))
	assert.Equal(t, "ca-overtime-v2", after.Sources[policy.TypeOvertime])
}

func TestRegistry_Add_DuplicateVersionRejected(t *testing.T) {
	reg := newRegistry(t)
	dup := policy.CaliforniaOvertimePolicy(epoch.AddDate(1, 0, 0))
	dup.ID = "another-id"

	_, err := reg.Add(dup)

	assert.ErrorIs(t, err, policy.ErrDuplicateVersion)
}

func TestRegistry_Add_AssignsNextVersionAndID(t *testing.T) {
	reg := newRegistry(t)
	p := policy.CaliforniaOvertimePolicy(epoch.AddDate(1, 0, 0))
	p.ID = ""
	p.Version = 0

	added, err := reg.Add(p)

	require.NoError(t, err)
	assert.Equal(t, 2, added.Version)
	assert.NotEmpty(t, added.ID)
}

func TestRegistry_Add_IsolatedFromCaller(t *testing.T) {
	// GIVEN: A registered policy
	// WHEN: The caller mutates its own copy afterwards
	// THEN: The registry is unaffected

	reg, err := policy.NewRegistry()
	require.NoError(t, err)
	p := policy.StandardRestPolicy(epoch)
	_, err = reg.Add(p)
	require.NoError(t, err)

	p.Rest.MaxShiftHours = decimal.NewFromInt(99)
	p.Rest.TwoWeekCaps[timecard.EmployeeMedicalResident] = decimal.NewFromInt(1)

	got, err := reg.Get("federal-rest-v1")
	require.NoError(t, err)
	assert.True(t, got.Rest.MaxShiftHours.Equal(decimal.NewFromInt(16)))
	cap, ok := got.Rest.TwoWeekCap(timecard.EmployeeMedicalResident)
	require.True(t, ok)
	assert.True(t, cap.Equal(decimal.NewFromInt(80)))
}

func TestRegistry_Resolve_IsolatedFromCaller(t *testing.T) {
	reg := newRegistry(t)
	at := epoch.AddDate(1, 0, 0)

	rs := reg.Resolve("TX", at)
	rs.Rest.TwoWeekCaps[timecard.EmployeeMedicalResident] = decimal.NewFromInt(1)

	cap, ok := reg.Resolve("TX", at).Rest.TwoWeekCap(timecard.EmployeeMedicalResident)
	require.True(t, ok)
	assert.True(t, cap.Equal(decimal.NewFromInt(80)), "cap %s", cap)
}

func TestRegistry_Effective_NotFound(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Effective(policy.TypeOvertime, "NY", epoch.AddDate(1, 0, 0))

	assert.ErrorIs(t, err, policy.ErrPolicyNotFound)
}

func TestRegistry_List_Ordered(t *testing.T) {
	reg := newRegistry(t)

	list := reg.List()

	require.Len(t, list, 7)
	assert.Equal(t, "", list[0].Jurisdiction)
	assert.Equal(t, "CA", list[5].Jurisdiction)
	assert.Equal(t, "CO", list[6].Jurisdiction)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

type failingStore struct{ *store.Memory }

func (failingStore) SavePolicy(context.Context, policy.Policy) error {
	return errors.New("disk full")
}

func TestRestore_SeedsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	_, err := policy.Restore(ctx, mem, policy.StandardPolicies(epoch)...)
	require.NoError(t, err)
	reg, err := policy.Restore(ctx, mem, policy.StandardPolicies(epoch)...)
	require.NoError(t, err)

	stored, err := mem.LoadPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 7)
	assert.Len(t, reg.List(), 7)
}

func TestPublish_FailedSaveLeavesRegistryUnchanged(t *testing.T) {
	// GIVEN: A store that rejects every save
	// WHEN: Publishing a new CA overtime version
	// THEN: The error surfaces and resolution still uses v1

	reg := newRegistry(t)
	p := policy.CaliforniaOvertimePolicy(epoch.AddDate(1, 0, 0))
	p.ID, p.Version = "ca-overtime-v2", 2
	p.Overtime.DailyThreshold = decimal.NewNullDecimal(decimal.NewFromInt(9))

	_, err := reg.Publish(context.Background(), failingStore{store.NewMemory()}, p)

	require.Error(t, err)
	_, err = reg.Get("ca-overtime-v2")
	assert.ErrorIs(t, err, policy.ErrPolicyNotFound)
	rs := reg.Resolve("CA", epoch.AddDate(2, 0, 0))
	assert.True(t, rs.Overtime.DailyThreshold.Decimal.Equal(decimal.NewFromInt(8)))
}

func TestSync_PicksUpVersionsPublishedElsewhere(t *testing.T) {
	// GIVEN: Two registries sharing one store
	// WHEN: One publishes a version and the other syncs
	// THEN: Both resolve the new version, and a second sync adds nothing

	ctx := context.Background()
	mem := store.NewMemory()
	a, err := policy.Restore(ctx, mem, policy.StandardPolicies(epoch)...)
	require.NoError(t, err)
	b, err := policy.Restore(ctx, mem)
	require.NoError(t, err)

	p := policy.CaliforniaOvertimePolicy(epoch.AddDate(1, 0, 0))
	p.ID, p.Version = "", 0
	p.Overtime.DailyThreshold = decimal.NewNullDecimal(decimal.NewFromInt(9))
	published, err := a.Publish(ctx, mem, p)
	require.NoError(t, err)

	n, err := b.Sync(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rs := b.Resolve("CA", epoch.AddDate(2, 0, 0))
	assert.Equal(t, published.ID, rs.Sources[policy.TypeOvertime])

	n, err = b.Sync(ctx, mem)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// RULE HELPERS
// =============================================================================

func TestOvertimeRules_SalaryTest(t *testing.T) {
	rules := policy.Defaults().Overtime
	assert.True(t, rules.PassesSalaryTest(decimal.Zero))

	rules.MinimumSalary = decimal.NewNullDecimal(decimal.NewFromInt(35568))
	assert.False(t, rules.PassesSalaryTest(decimal.NewFromInt(30000)))
	assert.True(t, rules.PassesSalaryTest(decimal.NewFromInt(35568)))
}

func TestRetention_Defaults(t *testing.T) {
	rk := policy.Defaults().RecordKeeping
	recorded := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	timeRec := rk.TimeRecordRetention()
	payroll := rk.PayrollRecordRetention()

	assert.Equal(t, 2, timeRec.MinimumYears)
	assert.Equal(t, 3, payroll.MinimumYears)
	assert.Equal(t, time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC), payroll.RetainUntil(recorded))
	assert.False(t, timeRec.Expired(recorded, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, timeRec.Expired(recorded, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
}
