/*
Package bursar orchestrates ledger operations for the student accounts
office: account lifecycle, adjustments, payment recording and reversal, and
term rollover. Every operation is one transaction; the account recompute
commits with the mutation or not at all.

Collaborator boundaries live here as small consumer-side interfaces. The fee
catalog and academic calendar are configuration-backed (see package catalog);
actor identity comes from the transport layer.
*/
package bursar

import (
	"context"

	"github.com/meridian/bursar-engine/ledger"
)

// Catalog prices base fees. A missing entry is ledger.ErrFeeScheduleNotFound
// and must surface; the engine never invents a zero fee.
type Catalog interface {
	BaseFee(ctx context.Context, departmentID string, period ledger.AcademicPeriod) (ledger.Money, error)
}

// Calendar supplies the payment deadline for a period, or
// ledger.ErrDueDateNotFound when none is configured.
type Calendar interface {
	PaymentDueDate(ctx context.Context, period ledger.AcademicPeriod) (ledger.Date, error)
}

// Identity resolves the actor performing the current operation for audit
// stamping.
type Identity interface {
	CurrentActor(ctx context.Context) ledger.ActorID
}

// IdentityFunc adapts a function to the Identity interface.
type IdentityFunc func(ctx context.Context) ledger.ActorID

func (f IdentityFunc) CurrentActor(ctx context.Context) ledger.ActorID { return f(ctx) }

// SystemActor stamps unattended operations (migrations, demo loaders).
const SystemActor = ledger.ActorID("system")
