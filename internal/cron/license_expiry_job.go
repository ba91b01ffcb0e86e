package cron

import (
	"context"
	"fmt"

	"github.com/worklane/worklane-backend/pkg/logger"
)

// LicenseExpiryJobParams configures the license expiry sweep.
type LicenseExpiryJobParams struct {
	Logger   *logger.Logger
	Licenses licenseExpirer
}

type licenseExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// NewLicenseExpiryJob builds the cron job that retires licenses past their
// expiry date.
func NewLicenseExpiryJob(params LicenseExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Licenses == nil {
		return nil, fmt.Errorf("licensing service required")
	}
	return &licenseExpiryJob{
		logg:     params.Logger,
		licenses: params.Licenses,
	}, nil
}

type licenseExpiryJob struct {
	logg     *logger.Logger
	licenses licenseExpirer
}

func (j *licenseExpiryJob) Name() string { return "license-expiry" }

func (j *licenseExpiryJob) Run(ctx context.Context) error {
	expired, err := j.licenses.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("license expiry sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "expired", expired)
	j.logg.Info(logCtx, "license expiry sweep complete")
	return nil
}
