package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/domain/interfaces"
	"teenpatti/domain/testhelpers"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedDealer deals A = trail of aces, B = 2-7-9 offsuit, so A always wins
type scriptedDealer struct {
	mu    sync.Mutex
	count int
}

func (d *scriptedDealer) Deal(now time.Time) (*entities.Round, error) {
	d.mu.Lock()
	d.count++
	n := d.count
	d.mu.Unlock()

	playerA, err := entities.ParseHand([]string{"AS", "AH", "AD"})
	if err != nil {
		return nil, err
	}
	playerB, err := entities.ParseHand([]string{"2C", "7D", "9S"})
	if err != nil {
		return nil, err
	}
	return &entities.Round{
		ID:        roundIDFor(n),
		Game:      entities.GameTPT20,
		StartedAt: now,
		PlayerA:   playerA,
		PlayerB:   playerB,
		Winner:    entities.SideA,
		Resolver:  entities.ResolverOfficial,
		CreatedAt: now,
	}, nil
}

func roundIDFor(n int) string {
	return fmt.Sprintf("1000000000000%02d", n)
}

// recordingPublisher keeps every event it receives
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeUnitOfWork hands out shared testify mocks and a recording event bus
type fakeUnitOfWork struct {
	factory *fakeUnitOfWorkFactory
}

type fakeUnitOfWorkFactory struct {
	users   *testhelpers.MockUserRepository
	rounds  *testhelpers.MockRoundRepository
	bets    *testhelpers.MockBetRepository
	history *testhelpers.MockBalanceHistoryRepository
	bus     *recordingPublisher

	mu        sync.Mutex
	created   int
	commits   int
	rollbacks int
}

func newFakeUnitOfWorkFactory() *fakeUnitOfWorkFactory {
	return &fakeUnitOfWorkFactory{
		users:   new(testhelpers.MockUserRepository),
		rounds:  new(testhelpers.MockRoundRepository),
		bets:    new(testhelpers.MockBetRepository),
		history: new(testhelpers.MockBalanceHistoryRepository),
		bus:     &recordingPublisher{},
	}
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &fakeUnitOfWork{factory: f}
}

func (f *fakeUnitOfWorkFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }

func (u *fakeUnitOfWork) Commit() error {
	u.factory.mu.Lock()
	defer u.factory.mu.Unlock()
	u.factory.commits++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.factory.mu.Lock()
	defer u.factory.mu.Unlock()
	u.factory.rollbacks++
	return nil
}

func (u *fakeUnitOfWork) UserRepository() interfaces.UserRepository { return u.factory.users }
func (u *fakeUnitOfWork) RoundRepository() interfaces.RoundRepository {
	return u.factory.rounds
}
func (u *fakeUnitOfWork) BetRepository() interfaces.BetRepository { return u.factory.bets }
func (u *fakeUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.factory.history
}
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher { return u.factory.bus }
