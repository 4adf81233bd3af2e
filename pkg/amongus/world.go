// Package amongus implements a spatial social-deduction game on a fixed
// 14-room ship map: crewmates complete room-bound tasks while impostors
// move through vents, kill, and survive the meetings their victims'
// bodies trigger.
package amongus

import "sort"

// Name is the game identifier used by schedules and results.
const Name = "among_us"

// Room names for the fixed ship map.
const (
	RoomCafeteria      = "Cafeteria"
	RoomWeapons        = "Weapons"
	RoomO2             = "O2"
	RoomNavigation     = "Navigation"
	RoomShields        = "Shields"
	RoomCommunications = "Communications"
	RoomStorage        = "Storage"
	RoomAdmin          = "Admin"
	RoomElectrical     = "Electrical"
	RoomLowerEngine    = "LowerEngine"
	RoomUpperEngine    = "UpperEngine"
	RoomReactor        = "Reactor"
	RoomSecurity       = "Security"
	RoomMedBay         = "MedBay"
)

// Ejected is the off-map location sentinel. An ejected (or cleaned-up)
// player has no room and can never be reported.
const Ejected = "EJECTED"

// corridorEdges is the undirected walkable graph.
var corridorEdges = [][2]string{
	{RoomCafeteria, RoomWeapons},
	{RoomCafeteria, RoomAdmin},
	{RoomCafeteria, RoomMedBay},
	{RoomCafeteria, RoomUpperEngine},
	{RoomCafeteria, RoomStorage},
	{RoomWeapons, RoomO2},
	{RoomWeapons, RoomNavigation},
	{RoomO2, RoomNavigation},
	{RoomO2, RoomShields},
	{RoomNavigation, RoomShields},
	{RoomShields, RoomCommunications},
	{RoomShields, RoomStorage},
	{RoomCommunications, RoomStorage},
	{RoomStorage, RoomAdmin},
	{RoomStorage, RoomElectrical},
	{RoomStorage, RoomLowerEngine},
	{RoomElectrical, RoomLowerEngine},
	{RoomLowerEngine, RoomUpperEngine},
	{RoomLowerEngine, RoomReactor},
	{RoomLowerEngine, RoomSecurity},
	{RoomUpperEngine, RoomReactor},
	{RoomUpperEngine, RoomSecurity},
	{RoomUpperEngine, RoomMedBay},
	{RoomReactor, RoomSecurity},
}

// ventEdges is the undirected vent graph; only impostors may traverse.
var ventEdges = [][2]string{
	{RoomAdmin, RoomCafeteria},
	{RoomElectrical, RoomMedBay},
	{RoomElectrical, RoomSecurity},
	{RoomMedBay, RoomSecurity},
	{RoomWeapons, RoomNavigation},
	{RoomNavigation, RoomShields},
	{RoomReactor, RoomUpperEngine},
	{RoomReactor, RoomLowerEngine},
}

// roomTasks maps each room to its task names.
var roomTasks = map[string][]string{
	RoomCafeteria:      {"empty_garbage", "fix_wiring"},
	RoomWeapons:        {"clear_asteroids", "download_data"},
	RoomO2:             {"clean_o2_filter", "empty_chute"},
	RoomNavigation:     {"chart_course", "stabilize_steering"},
	RoomShields:        {"prime_shields"},
	RoomCommunications: {"reset_comms", "download_data"},
	RoomStorage:        {"fuel_engines", "fix_wiring"},
	RoomAdmin:          {"swipe_card", "upload_data"},
	RoomElectrical:     {"calibrate_distributor", "divert_power", "fix_wiring"},
	RoomLowerEngine:    {"align_engine_output"},
	RoomUpperEngine:    {"fuel_upper_engine"},
	RoomReactor:        {"start_reactor", "unlock_manifolds"},
	RoomSecurity:       {"fix_security_wiring"},
	RoomMedBay:         {"submit_scan", "inspect_sample"},
}

// world is the immutable map: adjacency built once from the edge lists.
type world struct {
	rooms     []string
	corridors map[string][]string
	vents     map[string][]string
}

func buildWorld() *world {
	w := &world{
		corridors: make(map[string][]string),
		vents:     make(map[string][]string),
	}
	for room := range roomTasks {
		w.rooms = append(w.rooms, room)
	}
	sort.Strings(w.rooms)
	addEdges(w.corridors, corridorEdges)
	addEdges(w.vents, ventEdges)
	return w
}

func addEdges(adj map[string][]string, edges [][2]string) {
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	for k := range adj {
		sort.Strings(adj[k])
	}
}

func (w *world) corridorAdjacent(from, to string) bool {
	return contains(w.corridors[from], to)
}

func (w *world) ventAdjacent(from, to string) bool {
	return contains(w.vents[from], to)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// taskAssignment is one task on one player's list.
type taskAssignment struct {
	Name string
	Room string
	Done bool
}

// allTaskSites flattens the room/task table into drawable (room, task)
// pairs, in a stable order.
func allTaskSites() []taskAssignment {
	var out []taskAssignment
	rooms := make([]string, 0, len(roomTasks))
	for r := range roomTasks {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	for _, r := range rooms {
		for _, task := range roomTasks[r] {
			out = append(out, taskAssignment{Name: task, Room: r})
		}
	}
	return out
}
