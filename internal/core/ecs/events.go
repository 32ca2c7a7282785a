package ecs

// Lifecycle events emitted by CommandBuffer.Flush onto the world's bus.
// Subscribers see them at the start of the following tick.

type EntitySpawned struct {
	Entity    EntityID
	Archetype Mask
}

type EntityDespawned struct {
	Entity EntityID
}
