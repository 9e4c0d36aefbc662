package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/labor-engine/timecard"
	"github.com/warp/labor-engine/timecard/store"
)

func day(d, hour int) time.Time {
	return time.Date(2025, time.March, d, hour, 0, 0, 0, time.UTC)
}

func entry(emp string, d, in, out int) timecard.TimeEntry {
	clockOut := day(d, out)
	return timecard.TimeEntry{EmployeeID: emp, ClockIn: day(d, in), ClockOut: &clockOut}
}

func TestMemory_SaveAndGet(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	saved, err := m.SaveEntry(ctx, entry("emp-1", 10, 9, 17))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := m.GetEntry(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, timecard.StatusPendingApproval, got.Status)
}

func TestMemory_SaveRejectsInvalid(t *testing.T) {
	m := store.NewMemory()

	_, err := m.SaveEntry(context.Background(), entry("emp-1", 10, 17, 9))

	assert.ErrorIs(t, err, timecard.ErrInvalidTimeRange)
}

func TestMemory_LockedEntryCannotBeOverwritten(t *testing.T) {
	// GIVEN: An approved entry
	// WHEN: Saving a correction over it
	// THEN: ErrEntryLocked

	m := store.NewMemory()
	ctx := context.Background()
	saved, err := m.SaveEntry(ctx, entry("emp-1", 10, 9, 17))
	require.NoError(t, err)
	_, err = m.UpdateStatus(ctx, saved.ID, timecard.StatusApproved)
	require.NoError(t, err)

	saved.Status = timecard.StatusPendingApproval
	_, err = m.SaveEntry(ctx, saved)

	assert.ErrorIs(t, err, timecard.ErrEntryLocked)
}

func TestMemory_UpdateStatus(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	saved, err := m.SaveEntry(ctx, entry("emp-1", 10, 9, 17))
	require.NoError(t, err)

	_, err = m.UpdateStatus(ctx, saved.ID, timecard.StatusCompleted)
	assert.ErrorIs(t, err, timecard.ErrInvalidTransition)

	_, err = m.UpdateStatus(ctx, "missing", timecard.StatusApproved)
	assert.ErrorIs(t, err, timecard.ErrEntryNotFound)

	got, err := m.UpdateStatus(ctx, saved.ID, timecard.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusRejected, got.Status)
}

func TestMemory_LoadEntries_IntersectingAndOrdered(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	for _, e := range []timecard.TimeEntry{
		entry("emp-1", 12, 9, 17),
		entry("emp-1", 10, 9, 17),
		entry("emp-1", 20, 9, 17),
		entry("emp-2", 11, 9, 17),
	} {
		_, err := m.SaveEntry(ctx, e)
		require.NoError(t, err)
	}

	got, err := m.LoadEntries(ctx, "emp-1", day(10, 12), day(15, 0))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(10, 9), got[0].ClockIn)
	assert.Equal(t, day(12, 9), got[1].ClockIn)
}

func TestMemory_LoadEntries_ReturnsCopies(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	e := entry("emp-1", 10, 9, 17)
	e.Breaks = []timecard.Break{{Type: timecard.BreakLunch, Start: day(10, 12), End: day(10, 12).Add(30 * time.Minute)}}
	_, err := m.SaveEntry(ctx, e)
	require.NoError(t, err)

	got, err := m.LoadEntries(ctx, "emp-1", day(10, 0), day(11, 0))
	require.NoError(t, err)
	got[0].Breaks[0].Paid = true

	again, err := m.LoadEntries(ctx, "emp-1", day(10, 0), day(11, 0))
	require.NoError(t, err)
	assert.False(t, again[0].Breaks[0].Paid)
}

func TestMemory_Profiles(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	_, err := m.GetProfile(ctx, "emp-1")
	assert.ErrorIs(t, err, timecard.ErrEmployeeNotFound)

	require.NoError(t, m.SaveProfile(ctx, timecard.Profile{ID: "emp-1", State: "CA"}))
	p, err := m.GetProfile(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "CA", p.State)
}
