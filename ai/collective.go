package ai

import "github.com/nstehr/warren/warren-core/model"

// Activity is a category of collective-managed work.
type Activity int

const (
	ActivityIdle Activity = iota
	ActivitySleep
	ActivityTrain
	ActivityWork
	ActivityHaul
	ActivityStudy
	ActivityGuard
	ActivityEat
	activityCount
)

var activityNames = [...]string{"idle", "sleep", "train", "work", "haul", "study", "guard", "eat"}

func (a Activity) String() string {
	if a < 0 || a >= activityCount {
		return "unknown"
	}
	return activityNames[a]
}

// Activities lists every activity in declaration order.
func Activities() []Activity {
	out := make([]Activity, activityCount)
	for i := range out {
		out[i] = Activity(i)
	}
	return out
}

func ParseActivity(s string) (Activity, bool) {
	for i, n := range activityNames {
		if n == s {
			return Activity(i), true
		}
	}
	return ActivityIdle, false
}

// TeamOrder is a standing instruction given to a team.
type TeamOrder int

const (
	OrderFlee TeamOrder = iota
	OrderStandGround
)

func (o TeamOrder) String() string {
	switch o {
	case OrderFlee:
		return "flee"
	case OrderStandGround:
		return "stand_ground"
	}
	return "unknown"
}

func ParseTeamOrder(s string) (TeamOrder, bool) {
	switch s {
	case "flee":
		return OrderFlee, true
	case "stand_ground":
		return OrderStandGround, true
	}
	return 0, false
}

// MinionTrait marks collective members with special duties.
type MinionTrait int

const (
	TraitFighter MinionTrait = iota
	TraitWorker
	TraitNoAutoEquipment
)

type TeamID int

// ActivityState is the member's current activity and when it lapses.
type ActivityState struct {
	Activity   Activity
	FinishTime int
}

type Alarm struct {
	Pos        model.Position
	FinishTime int
}

// Stash is a storage tile holding items a member owns.
type Stash struct {
	Pos   model.Position
	Items []model.Item
}

// Task is a multi-step unit of work. Move returns NoMove once the task has
// nothing left to do.
type Task interface {
	Name() string
	Move(a Agent) Move
	Done() bool
}

// TaskMap tracks which member holds which task. It is the only writer of
// task claims; behaviors go through Take, Free and AddFor.
type TaskMap interface {
	TaskFor(c Creature) Task
	IsPriority(t Task) bool
	ClosestPriorityTask(c Creature, a Activity) Task
	Take(c Creature, t Task)
	Free(c Creature)
	AddFor(t Task, c Creature) Task
}

type Teams interface {
	Containing(c Creature) []TeamID
	IsActive(id TeamID) bool
	HasOrder(id TeamID, c Creature, o TeamOrder) bool
	Leader(id TeamID) Creature
	IsPersistent(id TeamID) bool
}

// Collective is the managed group a delegating agent belongs to.
type Collective interface {
	Tasks() TaskMap
	Teams() Teams
	Time() int

	CurrentActivity(c Creature) ActivityState
	SetActivity(c Creature, a Activity)
	ActivityAvailable(c Creature, a Activity) bool
	CanChooseRandomly(c Creature, a Activity) bool
	ActivityGood(c Creature, a Activity) bool
	ActivityGoodAssumingTasks(c Creature, a Activity) bool
	ExistingTask(c Creature, a Activity) Task
	GenerateTask(c Creature, a Activity) Task
	DropTask(c Creature, a Activity) Task
	FreeFromTask(c Creature)

	Alarm() (Alarm, bool)
	HasTrait(c Creature, t MinionTrait) bool
	UsesEquipment(c Creature) bool
	AutoAssignEquipment(c Creature)
	OwnedStorage(c Creature) []Stash
	HealingOutsideTerritory() bool
	InTerritory(pos model.Position) bool
}
