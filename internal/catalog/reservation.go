package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Line is one product quantity to reserve, commit or release.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

type stockMover interface {
	Reserve(ctx context.Context, productID uuid.UUID, qty int) error
	Commit(ctx context.Context, productID uuid.UUID, qty int) error
	Release(ctx context.Context, productID uuid.UUID, qty int) error
}

// ReserveAll reserves every line in order. When a line fails, the lines
// already reserved are released and the original error is returned; a
// failing compensation is appended to it.
func ReserveAll(ctx context.Context, stock stockMover, lines []Line) error {
	reserved := make([]Line, 0, len(lines))
	for _, line := range lines {
		if err := stock.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			if compErr := ReleaseAll(context.WithoutCancel(ctx), stock, reserved); compErr != nil {
				return multierr.Append(err, compErr)
			}
			return err
		}
		reserved = append(reserved, line)
	}
	return nil
}

// ReleaseAll releases every line, continuing past failures.
func ReleaseAll(ctx context.Context, stock stockMover, lines []Line) error {
	var errs error
	for i := len(lines) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, stock.Release(ctx, lines[i].ProductID, lines[i].Quantity))
	}
	return errs
}

// CommitAll commits every reserved line.
func CommitAll(ctx context.Context, stock stockMover, lines []Line) error {
	for _, line := range lines {
		if err := stock.Commit(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
