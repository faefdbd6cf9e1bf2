/*
Package tracker contains the control layer of a mixseq session: the Model, the
Player and the Broker connecting them.

The Model owns the current graph snapshot and the command History. Every
change to the graph is a Command executed through the history, so that it can
be undone; the resulting snapshot is published to the player atomically via
the Broker. Transport changes (play, pause, stop, tempo, loops) are sent to
the player as messages.

The Player is driven by the audio callback: Process advances the transport by
one block of audio, triggers the instruments of the tracks at the audio time
of every step boundary and reports its status back to the model. The player
never blocks and does not allocate in Process.

Like the model, the UI does not modify data directly; there are types Action
and Bool which manipulate the model in a controlled way. For example,
model.PlayAction() returns an Action that starts the transport, executed with
model.PlayAction().Do(), and model.PatternLoop().Bool() can be toggled.
*/
package tracker
