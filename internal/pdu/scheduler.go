package pdu

// Tick evaluates the scheduler (§4.8) for every PDU at the given step
// number: a PDU becomes eligible when step >= base and
// (step - base) mod interval == 0, where base = epoch_offset + phase
// (all in whole steps). interval == 0 means always eligible. Eligible
// PDUs have their signal rows' Skip cleared; aligned PDUs (interval > 0)
// also have their checksum zeroed so Encode force-retransmits them, while
// interval == 0 PDUs are retransmitted only when their checksum changes.
// Ineligible PDUs are marked Skip on every row.
func (net *Network) Tick(step int) {
	for _, p := range net.Pdus {
		always := p.IntervalSteps == 0
		aligned := false
		if !always {
			base := net.EpochOffsetSteps + p.PhaseSteps
			aligned = step >= base && (step-base)%p.IntervalSteps == 0
		}
		eligible := always || aligned
		for _, i := range p.rows(&net.Matrix) {
			net.Matrix.Skip[i] = !eligible
		}
		if aligned {
			// Scheduled re-emission: force retransmit even if unchanged.
			p.checksum = 0
			p.forcedThisTick = true
		}
	}
}
