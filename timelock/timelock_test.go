package timelock

import (
	"testing"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/mpoolerrors"
)

func TestCheckAbsoluteHeightFloor(t *testing.T) {
	conds := coins.Conditions{HeightAbsolute: 100}
	err := Check(nil, conds, 99, 0)
	if err == nil || err.Code != mpoolerrors.AssertHeightAbsoluteFailed {
		t.Fatalf("got %v, want ASSERT_HEIGHT_ABSOLUTE_FAILED", err)
	}
	if err := Check(nil, conds, 100, 0); err != nil {
		t.Fatalf("unexpected error at exact floor: %v", err)
	}
}

func TestCheckBeforeHeightAbsoluteCeiling(t *testing.T) {
	ceiling := uint32(200)
	conds := coins.Conditions{BeforeHeightAbsolute: &ceiling}
	if err := Check(nil, conds, 199, 0); err != nil {
		t.Fatalf("unexpected error below ceiling: %v", err)
	}
	err := Check(nil, conds, 200, 0)
	if err == nil || err.Code != mpoolerrors.AssertBeforeHeightAbsoluteFailed {
		t.Fatalf("got %v, want ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED", err)
	}
}

func TestCheckRelativeHeight(t *testing.T) {
	coinID := coins.ID{1}
	relative := uint32(10)
	conds := coins.Conditions{Spends: []coins.SpendConditions{{CoinID: coinID, HeightRelative: &relative}}}
	records := map[coins.ID]coins.Record{coinID: {ConfirmedHeight: 50}}

	if err := Check(records, conds, 59, 0); err == nil || err.Code != mpoolerrors.AssertHeightRelativeFailed {
		t.Fatalf("got %v, want ASSERT_HEIGHT_RELATIVE_FAILED", err)
	}
	if err := Check(records, conds, 60, 0); err != nil {
		t.Fatalf("unexpected error at exact relative floor: %v", err)
	}
}

func TestCheckBirthMismatch(t *testing.T) {
	coinID := coins.ID{2}
	birth := uint32(5)
	conds := coins.Conditions{Spends: []coins.SpendConditions{{CoinID: coinID, BirthHeight: &birth}}}
	records := map[coins.ID]coins.Record{coinID: {ConfirmedHeight: 6}}

	err := Check(records, conds, 100, 0)
	if err == nil || err.Code != mpoolerrors.AssertMyBirthHeightFailed {
		t.Fatalf("got %v, want ASSERT_MY_BIRTH_HEIGHT_FAILED", err)
	}
}

func TestCheckPassesWithNoConditions(t *testing.T) {
	if err := Check(nil, coins.Conditions{}, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
