package live

func (c *Coordinator) sendTo(conn *Conn, msg []byte) {
	if msg == nil {
		return
	}
	conn.enqueue(msg)
}

// broadcast delivers msg to the host and every follower of s, skipping
// exclude. Pass 0 to skip no one.
func (c *Coordinator) broadcast(s *Session, msg []byte, exclude ConnID) {
	if msg == nil {
		return
	}
	if s.HostID != exclude {
		if host, ok := c.registry.get(s.HostID); ok {
			host.enqueue(msg)
		}
	}
	for _, id := range s.participantIDs() {
		if id == exclude {
			continue
		}
		if p, ok := c.registry.get(id); ok {
			p.enqueue(msg)
		}
	}
}
