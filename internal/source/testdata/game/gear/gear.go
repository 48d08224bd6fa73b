package gear

type Loadout struct {
	Weight uint16 `stat:"category=Inventory;ui=false"`
	Bad    int    `stat:"bogus=1"`
}
