// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/fleet/fleettest"
	"github.com/voidops/voidops/internal/fleet/postgres"
	"github.com/voidops/voidops/internal/travel"
)

var _ = Describe("Fleet repositories", func() {
	var (
		ctx      context.Context
		drones   *postgres.DroneRepository
		accounts *postgres.AccountRepository
		events   *postgres.EventLog
		tx       *postgres.Transactor
		owner    *fleet.Account
	)

	BeforeEach(func() {
		ctx = context.Background()
		drones = postgres.NewDroneRepository(testPool)
		accounts = postgres.NewAccountRepository(testPool)
		events = postgres.NewEventLog(testPool)
		tx = postgres.NewTransactor(testPool)

		owner = &fleet.Account{ID: fleet.NewULID(), Name: "pilot", Credits: 100, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
		Expect(accounts.Create(ctx, owner)).To(Succeed())
	})

	newDrone := func() *fleet.Drone {
		d, err := fleet.NewDrone(fleettest.Catalog(), owner.ID, "probe", "", time.Now().Truncate(time.Microsecond))
		Expect(err).NotTo(HaveOccurred())
		Expect(drones.Create(ctx, d)).To(Succeed())
		return d
	}

	It("round-trips a drone with its task and cargo", func() {
		d := newDrone()
		start := time.Unix(time.Now().Unix(), 0).UTC()
		d.Task = fleet.Travelling{
			Destination: "rock",
			Origin:      travel.Point{X: 1, Y: 2},
			StartedAt:   start,
			EtaAt:       start.Add(time.Hour),
		}
		d.Inventory.Add("iron", 3.25)
		Expect(drones.Save(ctx, d)).To(Succeed())
		Expect(d.Version).To(Equal(int64(2)))

		got, err := drones.Get(ctx, d.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Task).To(Equal(d.Task))
		Expect(got.Inventory).To(Equal(fleet.Inventory{"iron": 3.25}))

		due, err := drones.ListDue(ctx, start.Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(due).To(ContainElement(d.ID))

		notYet, err := drones.ListDue(ctx, start.Add(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(notYet).NotTo(ContainElement(d.ID))
	})

	It("rejects a save from a stale copy", func() {
		d := newDrone()
		stale := d.Clone()
		d.FuelL = 1
		Expect(drones.Save(ctx, d)).To(Succeed())

		err := drones.Save(ctx, stale)
		Expect(err).To(HaveOccurred())
		Expect(fleet.IsValidation(err)).To(BeFalse())
	})

	It("rolls back drone, account and event log together", func() {
		d := newDrone()
		boom := errors.New("boom")

		err := tx.InTransaction(ctx, func(ctx context.Context) error {
			locked, err := drones.GetForUpdate(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			locked.Inventory.Add("iron", 10)
			Expect(drones.Save(ctx, locked)).To(Succeed())
			_, err = accounts.AdjustCredits(ctx, owner.ID, 50)
			Expect(err).NotTo(HaveOccurred())
			e, err := event.NewEntry(fleet.NewULID(), owner.ID, d.ID, event.Offline{DroneID: d.ID.String()}, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(events.Append(ctx, e)).To(Succeed())
			return boom
		})
		Expect(errors.Is(err, boom)).To(BeTrue())

		got, err := drones.Get(ctx, d.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Inventory.Empty()).To(BeTrue())

		acct, err := accounts.Get(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(acct.Credits).To(BeNumerically("~", 100, 1e-9))

		logged, err := events.ListByOwner(ctx, owner.ID, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(logged).To(BeEmpty())
	})

	It("lists an owner's drones oldest first", func() {
		first := newDrone()
		second := newDrone()

		list, err := drones.ListByOwner(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect([]ulid.ULID{list[0].ID, list[1].ID}).To(Equal([]ulid.ULID{first.ID, second.ID}))
	})
})
